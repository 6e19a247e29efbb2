package gate

import (
	"io/fs"
	"net/http"
	"strings"
)

// StaticFS serves files from fsys under prefix, e.g. an embed.FS of
// stylesheets. Directory listings are not served.
func (a *App) StaticFS(prefix string, fsys fs.FS) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	files := http.StripPrefix(prefix, http.FileServerFS(fsys))
	a.mux.HandleFunc("GET "+prefix, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
