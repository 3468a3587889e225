package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/GoArmGo/ModuleHub/internal/archive"
	"github.com/GoArmGo/ModuleHub/internal/core/ports"
	"github.com/GoArmGo/ModuleHub/internal/domain"
	"github.com/GoArmGo/ModuleHub/internal/entrypoint"
	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
)

const (
	archiveKeyPrefix   = "archives/"
	archiveContentType = "application/zip"
)

// ModuleOptions необязательные зависимости и настройки ModuleUseCase.
// Нулевые значения допустимы: без ArchiveStore архивы не сохраняются,
// без Publisher неудачная очистка только логируется.
type ModuleOptions struct {
	PublicBaseURL  string
	ExtractTimeout time.Duration
	ReconcileGrace time.Duration

	// UploadLimiter ограничивает число одновременных загрузок
	UploadLimiter chan struct{}

	ArchiveStore ports.ArchiveStore
	Publisher    ports.CleanupPublisher
	Metrics      PipelineMetrics
}

// moduleUseCase implements ModuleUseCase
type moduleUseCase struct {
	modules   ports.ModuleStorage
	extractor *archive.Extractor
	opts      ModuleOptions
	logger    *slog.Logger
	now       func() time.Time
}

// NewModuleUseCase создает новый экземпляр ModuleUseCase
func NewModuleUseCase(
	modules ports.ModuleStorage,
	extractor *archive.Extractor,
	opts ModuleOptions,
	logger *slog.Logger,
) ModuleUseCase {
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &moduleUseCase{
		modules:   modules,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *moduleUseCase) Upload(ctx context.Context, userID int64, originalName string, r io.Reader) (*UploadResult, error) {
	start := time.Now()

	if originalName == "" {
		originalName = "module.zip"
	}

	release, err := uc.acquire(ctx)
	if err != nil {
		return nil, wrapErr(KindInternal, "Сервер перегружен, попробуйте позже", err)
	}
	defer release()

	folder := archive.NewFolder()
	log := uc.logger.With("user_id", userID, "folder", folder)

	// 1. Сохраняем архив во временный файл
	stagedPath, size, err := uc.extractor.Stage(ctx, folder, r)
	if err != nil {
		uc.observeUpload(start, err, 0)
		log.Warn("failed to stage upload", "error", err)
		return nil, classifyArchiveErr(err)
	}
	defer func() {
		if err := uc.extractor.RemoveStaged(folder); err != nil {
			log.Error("failed to remove staged archive", "error", err)
		}
	}()

	// 2. Распаковываем с ограничением по времени
	extractCtx := ctx
	if uc.opts.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, uc.opts.ExtractTimeout)
		defer cancel()
	}
	res, err := uc.extractor.Extract(extractCtx, folder, stagedPath)
	if err != nil {
		uc.observeUpload(start, err, 0)
		log.Warn("failed to extract module", "archive_bytes", size, "error", err)
		return nil, classifyArchiveErr(err)
	}

	// 3. Ищем точку входа
	rel, ok := entrypoint.Resolve(res.Dir)

	// 4. Регистрируем модуль; без записи каталог никому не нужен
	module := domain.Module{UserID: userID, Name: originalName, Folder: folder}
	if err := uc.modules.CreateModule(ctx, &module); err != nil {
		if rmErr := uc.extractor.RemoveModuleDir(folder); rmErr != nil {
			log.Error("failed to remove extracted module after insert failure", "error", rmErr)
		}
		uc.observeUpload(start, err, 0)
		return nil, wrapErr(KindInternal, "Не удалось сохранить модуль", err)
	}

	// 5. Исходный архив в приватное хранилище, ошибка не критична
	uc.retainArchive(ctx, folder, stagedPath, log)

	result := &UploadResult{
		Module: module,
		Status: domain.ModuleUnresolved,
		Files:  res.Files,
		Bytes:  res.Bytes,
	}
	if ok {
		result.Status = domain.ModuleReady
		result.EntryPoint = rel
		result.URL = entrypoint.URL(uc.opts.PublicBaseURL, folder, rel)
	}

	outcome := "ok"
	if !ok {
		outcome = "unresolved"
		log.Warn("module has no recognised entry point", "candidates", entrypoint.Candidates)
	}
	uc.opts.Metrics.ObserveUpload(outcome, time.Since(start).Seconds(), res.Bytes)

	log.Info("module uploaded",
		"module_id", module.ID,
		"status", result.Status,
		"entry_point", rel,
		"archive_bytes", size,
		"extracted_bytes", res.Bytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (uc *moduleUseCase) List(ctx context.Context, userID int64) ([]domain.ModuleView, error) {
	modules, err := uc.modules.ListModulesByUser(ctx, userID)
	if err != nil {
		return nil, wrapErr(KindInternal, "Не удалось получить список модулей", err)
	}

	views := make([]domain.ModuleView, 0, len(modules))
	for _, m := range modules {
		views = append(views, uc.view(m))
	}
	return views, nil
}

func (uc *moduleUseCase) view(m domain.Module) domain.ModuleView {
	v := domain.ModuleView{Name: m.Name, Folder: m.Folder, Status: domain.ModuleMissing}

	exists, err := uc.extractor.ModuleDirExists(m.Folder)
	if err != nil {
		if !errors.Is(err, archive.ErrInvalidFolder) {
			uc.logger.Warn("failed to stat module dir", "folder", m.Folder, "error", err)
		}
		return v
	}
	if !exists {
		return v
	}

	rel, ok := entrypoint.Resolve(uc.extractor.ModuleDir(m.Folder))
	if !ok {
		v.Status = domain.ModuleUnresolved
		return v
	}
	v.Status = domain.ModuleReady
	v.URL = entrypoint.URL(uc.opts.PublicBaseURL, m.Folder, rel)
	return v
}

func (uc *moduleUseCase) Delete(ctx context.Context, userID int64, folder string) error {
	if !archive.ValidFolder(folder) {
		uc.opts.Metrics.IncDelete("noop")
		uc.logger.Debug("delete ignored: invalid folder", "user_id", userID)
		return nil
	}

	deleted, err := uc.modules.DeleteModule(ctx, userID, folder)
	if err != nil {
		uc.opts.Metrics.IncDelete("failed")
		return wrapErr(KindInternal, "Не удалось удалить модуль", err)
	}
	if !deleted {
		uc.opts.Metrics.IncDelete("noop")
		uc.logger.Debug("delete ignored: not owned or unknown", "user_id", userID, "folder", folder)
		return nil
	}

	// запись уже удалена, файлы убираем по возможности
	payload := payloads.ModuleCleanupPayload{
		Folder:     folder,
		ArchiveKey: uc.archiveKey(folder),
		Reason:     "deleted",
	}
	if err := uc.removeFiles(ctx, payload); err != nil {
		uc.logger.Error("failed to remove module files", "folder", folder, "error", err)
		uc.deferCleanup(ctx, payload)
	}

	uc.opts.Metrics.IncDelete("deleted")
	uc.logger.Info("module deleted", "user_id", userID, "folder", folder)
	return nil
}

func (uc *moduleUseCase) Cleanup(ctx context.Context, payload payloads.ModuleCleanupPayload) error {
	if !archive.ValidFolder(payload.Folder) {
		// повтор не поможет, сообщение отбрасывается
		uc.opts.Metrics.IncCleanup("dropped")
		uc.logger.Warn("cleanup job with invalid folder dropped", "folder", payload.Folder)
		return nil
	}
	if err := uc.removeFiles(ctx, payload); err != nil {
		uc.opts.Metrics.IncCleanup("failed")
		return fmt.Errorf("cleanup %s: %w", payload.Folder, err)
	}
	uc.opts.Metrics.IncCleanup("done")
	uc.logger.Info("module files cleaned up", "folder", payload.Folder, "reason", payload.Reason)
	return nil
}

func (uc *moduleUseCase) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()
	report := &ReconcileReport{}
	cutoff := uc.now().Add(-uc.opts.ReconcileGrace)

	folders, err := uc.modules.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	known := make(map[string]struct{}, len(folders))
	for _, f := range folders {
		known[f] = struct{}{}
	}

	// a) каталоги без записи. Свежие не трогаем: запись появляется после распаковки.
	dirs, err := uc.extractor.ListModuleDirs()
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	for _, d := range dirs {
		if _, ok := known[d.Folder]; ok || d.ModTime.After(cutoff) {
			continue
		}
		if err := uc.extractor.RemoveModuleDir(d.Folder); err != nil {
			uc.logger.Error("failed to remove orphan module dir", "folder", d.Folder, "error", err)
			continue
		}
		report.OrphanDirs++
	}

	// b) записи без каталога
	for _, f := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exists, err := uc.extractor.ModuleDirExists(f)
		if err != nil || exists {
			continue
		}
		n, err := uc.modules.DeleteModulesByFolder(ctx, f)
		if err != nil {
			uc.logger.Error("failed to delete stale module rows", "folder", f, "error", err)
			continue
		}
		report.StaleRows += int(n)
	}

	// c) забытые временные архивы
	staged, err := uc.extractor.ListStaged()
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	for _, s := range staged {
		if s.ModTime.After(cutoff) {
			continue
		}
		if err := uc.extractor.RemoveStaged(s.Folder); err != nil {
			uc.logger.Error("failed to remove stale staged archive", "folder", s.Folder, "error", err)
			continue
		}
		report.StaleStaged++
	}

	uc.opts.Metrics.AddReconcileRemoved("orphan_dir", report.OrphanDirs)
	uc.opts.Metrics.AddReconcileRemoved("stale_row", report.StaleRows)
	uc.opts.Metrics.AddReconcileRemoved("stale_staged", report.StaleStaged)

	uc.logger.Info("reconciliation finished",
		"orphan_dirs", report.OrphanDirs,
		"stale_rows", report.StaleRows,
		"stale_staged", report.StaleStaged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// acquire занимает слот лимитера загрузок
func (uc *moduleUseCase) acquire(ctx context.Context) (func(), error) {
	if uc.opts.UploadLimiter == nil {
		return func() {}, nil
	}
	select {
	case uc.opts.UploadLimiter <- struct{}{}:
		return func() { <-uc.opts.UploadLimiter }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (uc *moduleUseCase) removeFiles(ctx context.Context, payload payloads.ModuleCleanupPayload) error {
	var errs []error
	if err := uc.extractor.RemoveModuleDir(payload.Folder); err != nil {
		errs = append(errs, err)
	}
	if payload.ArchiveKey != "" && uc.opts.ArchiveStore != nil {
		if err := uc.opts.ArchiveStore.DeleteFile(ctx, payload.ArchiveKey); err != nil {
			errs = append(errs, fmt.Errorf("delete retained archive: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (uc *moduleUseCase) deferCleanup(ctx context.Context, payload payloads.ModuleCleanupPayload) {
	if uc.opts.Publisher == nil {
		uc.opts.Metrics.IncCleanup("lost")
		uc.logger.Warn("no cleanup queue configured, files left until next reconciliation", "folder", payload.Folder)
		return
	}
	if err := uc.opts.Publisher.PublishModuleCleanup(ctx, payload); err != nil {
		uc.opts.Metrics.IncCleanup("lost")
		uc.logger.Error("failed to publish cleanup job", "folder", payload.Folder, "error", err)
		return
	}
	uc.opts.Metrics.IncCleanup("queued")
}

func (uc *moduleUseCase) archiveKey(folder string) string {
	if uc.opts.ArchiveStore == nil {
		return ""
	}
	return archiveKeyPrefix + folder + ".zip"
}

func (uc *moduleUseCase) retainArchive(ctx context.Context, folder, stagedPath string, log *slog.Logger) {
	key := uc.archiveKey(folder)
	if key == "" {
		return
	}
	f, err := os.Open(stagedPath)
	if err != nil {
		log.Warn("failed to open staged archive for retention", "error", err)
		return
	}
	defer f.Close()

	if _, err := uc.opts.ArchiveStore.UploadFile(ctx, key, f, archiveContentType); err != nil {
		log.Warn("failed to retain archive", "key", key, "error", err)
		return
	}
	log.Debug("archive retained", "key", key)
}

func (uc *moduleUseCase) observeUpload(start time.Time, err error, extracted int64) {
	outcome := "failed"
	switch classifyArchiveErr(err).Kind {
	case KindTooLarge:
		outcome = "too_large"
	case KindExtraction:
		outcome = "rejected"
	}
	uc.opts.Metrics.ObserveUpload(outcome, time.Since(start).Seconds(), extracted)
}

// classifyArchiveErr переводит ошибки распаковки в классы для клиента
func classifyArchiveErr(err error) *Error {
	switch {
	case errors.Is(err, archive.ErrArchiveTooLarge),
		errors.Is(err, archive.ErrEntryTooLarge),
		errors.Is(err, archive.ErrTooManyEntries):
		return wrapErr(KindTooLarge, "Архив слишком большой", err)
	case errors.Is(err, archive.ErrUnsafePath):
		return wrapErr(KindExtraction, "Архив содержит недопустимые пути", err)
	case errors.Is(err, archive.ErrInvalidArchive):
		return wrapErr(KindExtraction, "Файл не является корректным zip-архивом", err)
	case errors.Is(err, context.DeadlineExceeded):
		return wrapErr(KindExtraction, "Распаковка заняла слишком много времени", err)
	default:
		return wrapErr(KindInternal, "Ошибка распаковки", err)
	}
}
