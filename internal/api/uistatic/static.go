// Package uistatic serves the embedded question form.
package uistatic

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:app
var appFS embed.FS

// Handler serves index.html at "/" and any other embedded asset by path.
// Unknown paths under the API prefixes are left as 404s so clients never
// receive HTML for a mistyped endpoint.
func Handler() http.Handler {
	sub, err := fs.Sub(appFS, "app")
	if err != nil {
		return http.NotFoundHandler()
	}
	fileServer := http.FileServerFS(sub)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean(strings.TrimPrefix(r.URL.Path, "/"))
		if cleanPath == "." || cleanPath == "" || cleanPath == "index.html" {
			serveIndex(w, r, sub)
			return
		}
		if strings.HasPrefix(cleanPath, "v1/") || strings.HasPrefix(cleanPath, "query/") {
			http.NotFound(w, r)
			return
		}
		if _, err := fs.Stat(sub, cleanPath); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}
		serveIndex(w, r, sub)
	})
}

func serveIndex(w http.ResponseWriter, r *http.Request, filesystem fs.FS) {
	index, err := fs.ReadFile(filesystem, "index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(index)
}
