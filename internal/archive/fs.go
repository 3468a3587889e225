package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry каталог модуля или временный архив на диске
type Entry struct {
	Folder  string
	ModTime time.Time
}

// RemoveStaged удаляет временный архив. Отсутствующий файл не ошибка.
func (e *Extractor) RemoveStaged(folder string) error {
	if !ValidFolder(folder) {
		return fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	if err := os.Remove(e.StagedPath(folder)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged archive: %w", err)
	}
	return nil
}

// RemoveModuleDir удаляет каталог модуля целиком. Повторный вызов не ошибка.
func (e *Extractor) RemoveModuleDir(folder string) error {
	if !ValidFolder(folder) {
		return fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	if err := os.RemoveAll(e.ModuleDir(folder)); err != nil {
		return fmt.Errorf("remove module dir: %w", err)
	}
	return nil
}

// ModuleDirExists сообщает, есть ли на диске каталог модуля.
func (e *Extractor) ModuleDirExists(folder string) (bool, error) {
	if !ValidFolder(folder) {
		return false, fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	info, err := os.Stat(e.ModuleDir(folder))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// ListModuleDirs перечисляет каталоги модулей. Имена, не похожие на
// идентификатор, пропускаются: их создавал не этот сервис.
func (e *Extractor) ListModuleDirs() ([]Entry, error) {
	return listEntries(e.modulesDir, func(d fs.DirEntry) (string, bool) {
		return d.Name(), d.IsDir()
	})
}

// ListStaged перечисляет временные архивы.
func (e *Extractor) ListStaged() ([]Entry, error) {
	return listEntries(e.stagingDir, func(d fs.DirEntry) (string, bool) {
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, stagedExt) {
			return "", false
		}
		return strings.TrimSuffix(name, stagedExt), true
	})
}

func listEntries(dir string, match func(fs.DirEntry) (string, bool)) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(dir), err)
	}

	var out []Entry
	for _, d := range items {
		folder, ok := match(d)
		if !ok || !ValidFolder(folder) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Folder: folder, ModTime: info.ModTime()})
	}
	return out, nil
}
