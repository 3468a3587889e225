// Package archive принимает загруженный zip-архив, сохраняет его во временный
// каталог и распаковывает в отдельный каталог модуля.
//
// Содержимое архива контролирует пользователь, поэтому каждая запись проверяется:
// абсолютные пути и сегменты ".." отклоняют весь архив, размеры ограничиваются
// по фактически прочитанным байтам, а не по заголовкам.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const stagedExt = ".zip"

// Limits ограничения на один архив
type Limits struct {
	MaxArchiveBytes int64 // размер загруженного архива
	MaxTotalBytes   int64 // суммарный размер распакованных файлов
	MaxEntryBytes   int64 // размер одного распакованного файла
	MaxEntries      int   // количество записей в архиве
}

// DefaultLimits значения по умолчанию, совпадают с конфигурацией
func DefaultLimits() Limits {
	return Limits{
		MaxArchiveBytes: 200 << 20,
		MaxTotalBytes:   1 << 30,
		MaxEntryBytes:   256 << 20,
		MaxEntries:      20000,
	}
}

// Result итог распаковки
type Result struct {
	Dir     string
	Files   int
	Dirs    int
	Skipped int
	Bytes   int64
}

// Extractor сохраняет и распаковывает архивы модулей.
type Extractor struct {
	stagingDir string
	modulesDir string
	limits     Limits
	logger     *slog.Logger
}

// NewExtractor создаёт Extractor. stagingDir не должен раздаваться наружу.
func NewExtractor(stagingDir, modulesDir string, limits Limits, logger *slog.Logger) *Extractor {
	return &Extractor{
		stagingDir: stagingDir,
		modulesDir: modulesDir,
		limits:     limits,
		logger:     logger,
	}
}

// ModulesDir корневой каталог распакованных модулей
func (e *Extractor) ModulesDir() string { return e.modulesDir }

// ModuleDir каталог конкретного модуля
func (e *Extractor) ModuleDir(folder string) string {
	return filepath.Join(e.modulesDir, folder)
}

// StagedPath путь временного файла архива
func (e *Extractor) StagedPath(folder string) string {
	return filepath.Join(e.stagingDir, folder+stagedExt)
}

// Stage потоково записывает загруженный архив во временный файл.
// Превышение MaxArchiveBytes удаляет недописанный файл и возвращает ErrArchiveTooLarge.
func (e *Extractor) Stage(ctx context.Context, folder string, r io.Reader) (string, int64, error) {
	if !ValidFolder(folder) {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	start := time.Now()

	if err := os.MkdirAll(e.stagingDir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create staging dir: %w", err)
	}

	p := e.StagedPath(folder)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}

	maxBytes := e.limits.MaxArchiveBytes
	n, copyErr := io.Copy(f, io.LimitReader(&ctxReader{ctx: ctx, r: r}, maxBytes+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(p)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		return "", 0, fmt.Errorf("write staged file: %w", copyErr)
	case n > maxBytes:
		_ = os.Remove(p)
		return "", 0, fmt.Errorf("%w: more than %d bytes", ErrArchiveTooLarge, maxBytes)
	case closeErr != nil:
		_ = os.Remove(p)
		return "", 0, fmt.Errorf("close staged file: %w", closeErr)
	}

	e.logger.Debug("archive staged",
		"folder", folder,
		"bytes", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p, n, nil
}

// Extract распаковывает архив в свежий каталог <modulesDir>/<folder>.
// Каталог создаётся эксклюзивно: существующий каталог не перезаписывается.
// При любой ошибке частично распакованный каталог удаляется.
func (e *Extractor) Extract(ctx context.Context, folder, archivePath string) (*Result, error) {
	if !ValidFolder(folder) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	start := time.Now()

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		if zr != nil {
			_ = zr.Close()
		}
		if errors.Is(err, zip.ErrInsecurePath) {
			return nil, fmt.Errorf("%w: %v", ErrUnsafePath, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	if len(zr.File) > e.limits.MaxEntries {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyEntries, len(zr.File), e.limits.MaxEntries)
	}

	dest := e.ModuleDir(folder)

	// все имена проверяются до того, как что-либо попадёт на диск
	targets := make([]string, len(zr.File))
	layout := newTreeLayout(dest)
	for i, f := range zr.File {
		t, err := safeJoin(dest, f.Name)
		if err == nil {
			err = layout.claim(t, f)
		}
		if err != nil {
			e.logger.Warn("rejected archive entry", "folder", folder, "entry", f.Name, "error", err)
			return nil, err
		}
		targets[i] = t
	}

	if err := os.MkdirAll(e.modulesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create modules dir: %w", err)
	}
	if err := os.Mkdir(dest, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, folder)
		}
		return nil, fmt.Errorf("create module dir: %w", err)
	}

	res := &Result{Dir: dest}
	done := false
	defer func() {
		if !done {
			if rmErr := os.RemoveAll(dest); rmErr != nil {
				e.logger.Error("failed to remove partial extraction", "folder", folder, "error", rmErr)
			}
		}
	}()

	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := targets[i]
		mode := f.Mode()

		switch {
		case isDirEntry(f):
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("create dir %s: %w", f.Name, err)
			}
			res.Dirs++

		case mode.IsRegular():
			n, err := e.writeEntry(ctx, f, target, res.Bytes)
			if err != nil {
				return nil, err
			}
			res.Files++
			res.Bytes += n

		default:
			// симлинки и прочие специальные файлы не создаются
			e.logger.Warn("skipped non-regular archive entry", "folder", folder, "entry", f.Name, "mode", mode.String())
			res.Skipped++
		}
	}

	done = true
	e.logger.Info("archive extracted",
		"folder", folder,
		"files", res.Files,
		"dirs", res.Dirs,
		"skipped", res.Skipped,
		"bytes", res.Bytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// writeEntry распаковывает один файл. total сколько уже распаковано до него.
func (e *Extractor) writeEntry(ctx context.Context, f *zip.File, target string, total int64) (int64, error) {
	entryMax := e.limits.MaxEntryBytes
	if f.UncompressedSize64 > uint64(entryMax) {
		return 0, fmt.Errorf("%w: %s declares %d bytes", ErrEntryTooLarge, f.Name, f.UncompressedSize64)
	}

	limit := entryMax
	if remaining := e.limits.MaxTotalBytes - total; remaining < limit {
		limit = remaining
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create parent dir for %s: %w", f.Name, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", f.Name, err)
	}

	src := &ctxReader{ctx: ctx, r: rc}
	n, copyErr := io.Copy(out, io.LimitReader(src, limit+1))
	closeErr := out.Close()

	switch {
	case copyErr != nil && src.err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: read %s: %v", ErrInvalidArchive, f.Name, src.err)
	case copyErr != nil:
		return 0, fmt.Errorf("write %s: %w", f.Name, copyErr)
	case n > limit && limit == entryMax:
		return 0, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	case n > limit:
		return 0, fmt.Errorf("%w: extracted content exceeds %d bytes", ErrArchiveTooLarge, e.limits.MaxTotalBytes)
	case closeErr != nil:
		return 0, fmt.Errorf("close %s: %w", f.Name, closeErr)
	}
	return n, nil
}

func isDirEntry(f *zip.File) bool {
	return f.Mode().IsDir() || strings.HasSuffix(f.Name, "/")
}

// treeLayout запоминает, чем будет каждый путь дерева: каталогом или файлом.
// Запись, которая меняет тип уже занятого пути, делает архив некорректным.
type treeLayout struct {
	root  string
	isDir map[string]bool
}

func newTreeLayout(root string) *treeLayout {
	return &treeLayout{root: root, isDir: make(map[string]bool)}
}

func (l *treeLayout) claim(target string, f *zip.File) error {
	dir := isDirEntry(f)
	if !dir && !f.Mode().IsRegular() {
		// специальные записи пропускаются при распаковке
		return nil
	}
	if target == l.root {
		if dir {
			return nil
		}
		return fmt.Errorf("%w: file entry %q names the module root", ErrInvalidArchive, f.Name)
	}

	for p := filepath.Dir(target); p != l.root && len(p) > len(l.root); p = filepath.Dir(p) {
		if isDir, seen := l.isDir[p]; seen && !isDir {
			return fmt.Errorf("%w: %q is nested under a file entry", ErrInvalidArchive, f.Name)
		}
		l.isDir[p] = true
	}

	if isDir, seen := l.isDir[target]; seen && isDir != dir {
		return fmt.Errorf("%w: %q is both a file and a directory", ErrInvalidArchive, f.Name)
	}
	l.isDir[target] = dir
	return nil
}

// ctxReader прерывает чтение при отмене контекста и запоминает ошибку источника
type ctxReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return 0, err
	}
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF {
		c.err = err
	}
	return n, err
}
