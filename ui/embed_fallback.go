//go:build !ui_embed

// Package ui serves the capture dashboard. Without the ui_embed tag there is
// no dashboard and the root redirects to the API documentation.
package ui

import "net/http"

// Handler redirects to /docs.
func Handler() (http.Handler, error) {
	return http.RedirectHandler("/docs", http.StatusFound), nil
}
