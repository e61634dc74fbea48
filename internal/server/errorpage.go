package server

import "github.com/httpfs/httpfs/internal/assets"

// renderErrorPage builds the HTML body for every error response, per
// spec.md §7 ("user-visible bodies are HTML built from the same error
// template").
func renderErrorPage(title, message string) string {
	return assets.Render(assets.ErrorPage, []string{title, message}, nil)
}
