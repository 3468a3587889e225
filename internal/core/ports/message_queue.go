package ports

import (
	"context"

	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
)

// CleanupPublisher публикует задачи на удаление файлов модуля.
// Используется, когда удаление каталога в рамках запроса не удалось.
type CleanupPublisher interface {
	PublishModuleCleanup(ctx context.Context, payload payloads.ModuleCleanupPayload) error
}

// CleanupConsumer используется воркером для получения задач из очереди
type CleanupConsumer interface {
	// StartConsumingModuleCleanup начинает прослушивание очереди,
	// handler вызывается для каждого полученного сообщения
	StartConsumingModuleCleanup(ctx context.Context, handler func(context.Context, payloads.ModuleCleanupPayload) error) error
}
