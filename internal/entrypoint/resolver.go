// Package entrypoint находит запускаемый html-файл в распакованном модуле.
package entrypoint

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Candidates относительные пути точек входа в порядке приоритета:
// Articulate Storyline, Genially, Articulate Rise (scormcontent).
var Candidates = []string{
	"story.html",
	"genially.html",
	"scormcontent/index.html",
}

// Resolve возвращает первый существующий обычный файл из Candidates
// относительно dir (в виде slash-пути) и true.
// Если ничего не найдено, возвращает "", false: это не ошибка.
func Resolve(dir string) (string, bool) {
	for _, rel := range Candidates {
		info, err := os.Lstat(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return rel, true
		}
	}
	return "", false
}

// URL собирает адрес точки входа: <base>/modules/<folder>/<rel>.
// base может быть пустым, тогда получается путь от корня сайта.
func URL(base, folder, rel string) string {
	return strings.TrimRight(base, "/") + path.Join("/modules", folder, rel)
}
