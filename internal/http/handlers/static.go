package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hongminglow/timecard-be/internal/http/respond"
)

// StaticHandler serves the client bundle from dir. Unknown GET paths get
// index.html so client-side navigation survives a reload; /api paths never do.
type StaticHandler struct {
	dir string
}

func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{dir: dir}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.dir == "" || (r.Method != http.MethodGet && r.Method != http.MethodHead) ||
		r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "not found")
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if h.serveFile(w, r, filepath.Join(h.dir, filepath.FromSlash(clean))) {
		return
	}
	if !h.serveFile(w, r, filepath.Join(h.dir, "index.html")) {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "not found")
	}
}

func (h *StaticHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
