//go:build ui_embed

// Package ui serves the capture dashboard. Build with -tags ui_embed after
// building the frontend into ui/dist.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// Handler serves the embedded dashboard. Unknown extension-less paths get
// index.html so client-side routes survive a reload.
func Handler() (http.Handler, error) {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil, err
	}
	return spaHandler(fsys), nil
}

func spaHandler(fsys fs.FS) http.Handler {
	files := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		info, err := fs.Stat(fsys, name)

		switch {
		case err == nil && !info.IsDir():
			// Bundler output under assets/ is content hashed
			if strings.HasPrefix(name, "assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
		case !strings.Contains(path.Base(name), "."):
			r.URL.Path = "/"
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, r)
	})
}
