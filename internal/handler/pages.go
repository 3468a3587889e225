package handler

import (
	"io/fs"
	"log/slog"
	"net/http"
	"path"
)

// Page отдаёт встроенную HTML-страницу.
// Страницы статичны, данные dashboard получает через /list.
func Page(static fs.FS, name string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := fs.ReadFile(static, path.Join("static", name))
		if err != nil {
			logger.Error("embedded page not found", "page", name, "error", err)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(body); err != nil {
			logger.Error("failed to write HTTP response", "error", err)
		}
	}
}
