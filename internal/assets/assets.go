// Package assets embeds the static HTML templates used to render
// directory listings and error pages. spec.md §1 scopes the actual
// asset content out as an "opaque template with numbered {N} and named
// {keyword} placeholders substituted once at response build" — this
// package implements exactly that substitution contract, ported from
// the embed + placeholder-substitution shape of
// modules/caddyhttp/fileserver/browsetpl.go (which uses Go's
// html/template instead; the spec's own placeholder scheme is simpler
// and is implemented directly rather than through html/template, since
// escaping semantics aren't part of the spec's interface contract).
package assets

import (
	"embed"
	"strconv"
	"strings"
)

//go:embed templates/*.tpl
var templateFS embed.FS

func mustLoad(name string) string {
	b, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

var (
	ListingDesktop = mustLoad("listing_desktop.tpl")
	ListingMobile  = mustLoad("listing_mobile.tpl")
	ListingEntry   = mustLoad("listing_entry.tpl")
	ErrorPage      = mustLoad("error.tpl")
)

// Render substitutes numeric {0},{1},... placeholders from args and
// named {keyword} placeholders from kv into tpl.
func Render(tpl string, args []string, kv map[string]string) string {
	out := tpl
	for i, a := range args {
		out = strings.ReplaceAll(out, "{"+strconv.Itoa(i)+"}", a)
	}
	for k, v := range kv {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// DefaultKeywords supplies the icon/label keyword placeholders with
// minimal inline content so the templates render standalone even though
// the real icon assets are out of scope (spec.md §1).
var DefaultKeywords = map[string]string{
	"favicon":           "",
	"dir_icon":          "[DIR]",
	"file_icon":         "[FILE]",
	"file_binary_icon":  "[BIN]",
	"file_image_icon":   "[IMG]",
	"file_text_icon":    "[TXT]",
	"back_arrow_icon":   "<-",
	"new_dir_icon":      "[+DIR]",
	"delete_file_icon":  "[DEL]",
	"rename_icon":       "[REN]",
	"confirm_icon":      "[OK]",
	"date":              "",
	"manage":            "",
	"manage_mobile":     "",
	"manage_desktop":    "",
	"upload":            "",
	"adjust_tz":         "",
}
