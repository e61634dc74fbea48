// Directory listing rendering (spec.md §4.4's "GET directory", point 3),
// grounded on modules/caddyhttp/fileserver/browse.go's sort-then-render
// shape, using internal/assets's placeholder templates instead of
// html/template.
package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/httpfs/httpfs/internal/assets"
	"github.com/httpfs/httpfs/internal/encoding"
	"github.com/httpfs/httpfs/internal/herr"
)

type listingEntry struct {
	name   string
	isFile bool
	fi     os.FileInfo
}

// entryPassesSymlinkPolicy reports whether childPath should be shown in a
// listing: non-symlink entries always pass; a symlink is excluded when
// not following symlinks, shown when following without sandboxing, and
// gated through pathIsDescendant on its target when sandboxing is enabled, per
// spec.md §4.4 ("symlinks excluded or sandbox-filtered per policy").
func (s *Server) entryPassesSymlinkPolicy(childPath string) bool {
	fi, err := os.Lstat(childPath)
	if err != nil {
		return false
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return true
	}
	if !s.resolver.FollowSymlinks {
		return false
	}
	if !s.resolver.SandboxSymlinks {
		return true
	}
	target, err := filepath.EvalSymlinks(childPath)
	if err != nil {
		return false
	}
	return pathIsDescendant(target, s.resolver.Root)
}

func pathIsDescendant(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request, dirPath string, withBody bool) *herr.Error {
	dirents, err := os.ReadDir(dirPath)
	if err != nil {
		return statError(err)
	}

	var entries []listingEntry
	for _, de := range dirents {
		childPath := filepath.Join(dirPath, de.Name())
		if !s.entryPassesSymlinkPolicy(childPath) {
			continue
		}
		fi, ierr := de.Info()
		if ierr != nil {
			continue
		}
		entries = append(entries, listingEntry{name: de.Name(), isFile: !fi.IsDir(), fi: fi})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isFile != entries[j].isFile {
			return !entries[i].isFile
		}
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})

	var rows strings.Builder
	for _, e := range entries {
		href := path.Join(r.URL.Path, e.name)
		if !e.isFile {
			href += "/"
		}
		size := ""
		if e.isFile {
			size = humanReadableSize(e.fi.Size())
		}
		icon := "dir_icon"
		if e.isFile {
			icon = "file_icon"
		}
		rows.WriteString(assets.Render(assets.ListingEntry,
			[]string{href, e.name, e.fi.ModTime().UTC().Format(http.TimeFormat), size},
			map[string]string{"file_icon": assets.DefaultKeywords[icon]}))
		rows.WriteByte('\n')
	}

	tpl := assets.ListingDesktop
	if ua := r.UserAgent(); strings.Contains(ua, "Mobi") || strings.Contains(ua, "mobi") {
		tpl = assets.ListingMobile
	}

	kv := map[string]string{}
	for k, v := range assets.DefaultKeywords {
		kv[k] = v
	}
	if s.Config.WritesEnabled {
		kv["manage_desktop"] = "[upload] [new dir] [delete] [rename]"
		kv["manage_mobile"] = "[upload] [delete]"
	}
	if s.Config.WebDAV {
		kv["manage_desktop"] += " [create directory]"
	}

	body := assets.Render(tpl, []string{r.URL.Path, rows.String()}, kv)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if s.generated != nil {
		if tag := s.negotiatedTag(r); tag != encoding.Identity {
			if out, err := s.generated.GetOrEncode([]byte(body), tag); err == nil {
				w.Header().Set("Content-Encoding", string(tag))
				w.WriteHeader(http.StatusOK)
				if withBody {
					w.Write(out)
				}
				return nil
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	if withBody {
		w.Write([]byte(body))
	}
	return nil
}
