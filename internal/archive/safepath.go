package archive

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// entryName нормализует имя записи архива в slash-путь.
// Windows-архиваторы иногда пишут обратные слеши, поэтому они тоже разделители.
// Сегменты ".." отклоняются, сегменты "." просто убираются при нормализации.
// Возвращает "" для записей, которые указывают на сам корень.
func entryName(name string) (string, error) {
	n := strings.ReplaceAll(name, `\`, "/")

	if strings.HasPrefix(n, "/") || hasVolume(n) {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafePath, name)
	}
	for _, seg := range strings.Split(n, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: parent segment in %q", ErrUnsafePath, name)
		}
	}

	clean := path.Clean(n)
	if clean == "." {
		return "", nil
	}
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("%w: non-local path %q", ErrUnsafePath, name)
	}
	return clean, nil
}

// hasVolume ловит префикс диска вида "C:" на любой платформе.
// На Windows любое двоеточие в имени это альтернативный поток NTFS,
// на остальных системах это обычный символ имени файла.
func hasVolume(n string) bool {
	if len(n) >= 2 && n[1] == ':' && isASCIILetter(n[0]) {
		return true
	}
	if runtime.GOOS == "windows" && strings.Contains(n, ":") {
		return true
	}
	return filepath.VolumeName(filepath.FromSlash(n)) != ""
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// safeJoin возвращает путь записи внутри dst и повторно проверяет,
// что результат не вышел за пределы каталога.
func safeJoin(dst, name string) (string, error) {
	clean, err := entryName(name)
	if err != nil {
		return "", err
	}
	if clean == "" {
		return dst, nil
	}

	target := filepath.Join(dst, filepath.FromSlash(clean))
	root := filepath.Clean(dst) + string(os.PathSeparator)
	if !strings.HasPrefix(target, root) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}
