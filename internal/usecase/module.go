package usecase

import (
	"context"
	"io"

	"github.com/GoArmGo/ModuleHub/internal/domain"
	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
)

// ModuleUseCase определяет бизнес-логику работы с учебными модулями
type ModuleUseCase interface {
	// Upload сохраняет архив, распаковывает его в новый каталог,
	// ищет точку входа и регистрирует модуль за пользователем.
	// Отсутствие точки входа не ошибка: модуль сохраняется со статусом unresolved.
	Upload(ctx context.Context, userID int64, originalName string, r io.Reader) (*UploadResult, error)

	// List возвращает все модули пользователя с текущим статусом точки входа.
	// Статус вычисляется при каждом вызове по содержимому диска.
	List(ctx context.Context, userID int64) ([]domain.ModuleView, error)

	// Delete удаляет модуль пользователя. Чужой, неизвестный или
	// некорректный идентификатор каталога молча игнорируется.
	Delete(ctx context.Context, userID int64, folder string) error

	// Reconcile сверяет бд и диск при старте сервера
	Reconcile(ctx context.Context) (*ReconcileReport, error)

	// Cleanup удаляет файлы модуля, чья запись уже удалена. Идемпотентна.
	Cleanup(ctx context.Context, payload payloads.ModuleCleanupPayload) error
}

// UploadResult итог загрузки
type UploadResult struct {
	Module     domain.Module
	Status     domain.ModuleStatus
	EntryPoint string
	URL        string
	Files      int
	Bytes      int64
}

// ReconcileReport что было убрано при сверке
type ReconcileReport struct {
	OrphanDirs  int
	StaleRows   int
	StaleStaged int
}

// PipelineMetrics счётчики конвейера. Реализуется metrics.Metrics.
type PipelineMetrics interface {
	ObserveUpload(outcome string, seconds float64, extracted int64)
	IncDelete(outcome string)
	IncCleanup(outcome string)
	AddReconcileRemoved(kind string, n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveUpload(string, float64, int64) {}
func (nopMetrics) IncDelete(string)                     {}
func (nopMetrics) IncCleanup(string)                    {}
func (nopMetrics) AddReconcileRemoved(string, int)      {}
