package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"slidecast/logger"
)

// StaticHandler serves files from the public asset tree: rendered outputs,
// session uploads, and preset audio.
type StaticHandler struct {
	root string
}

// NewStaticHandler creates a handler rooted at the public directory.
func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{root: root}
}

// ServeHTTP implements http.Handler.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if rel == "" || strings.HasPrefix(rel, "..") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	f, err := os.Open(filepath.Join(h.root, filepath.FromSlash(rel)))
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", detectContentType(rel))
	w.Header().Set("Cache-Control", "public, max-age=31536000")

	if _, err := io.Copy(w, f); err != nil {
		logger.Error("error serving static file",
			logger.String("path", rel), logger.ErrorField(err))
	}
}

// detectContentType maps a file extension to its content type.
func detectContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
