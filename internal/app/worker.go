package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoArmGo/ModuleHub/internal/messaging/payloads"
)

// runWorker обрабатывает задачи очистки из RabbitMQ до отмены ctx
func runWorker(ctx context.Context, a *App) error {
	logger := a.c.Logger
	if a.c.CleanupConsumer == nil {
		return errors.New("режим worker требует RABBITMQ_URL")
	}

	messageHandler := func(ctx context.Context, payload payloads.ModuleCleanupPayload) error {
		start := time.Now()
		if err := a.c.ModuleUseCase.Cleanup(ctx, payload); err != nil {
			return err
		}
		logger.Info("cleanup job processed",
			"folder", payload.Folder,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	if err := a.c.CleanupConsumer.StartConsumingModuleCleanup(ctx, messageHandler); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}
	logger.Info("worker started, waiting for cleanup jobs")

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping worker")
	return nil
}
