package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/config"
	"github.com/GoArmGo/ModuleHub/internal/core/ports"
	"github.com/GoArmGo/ModuleHub/internal/handler"
	"github.com/GoArmGo/ModuleHub/internal/metrics"
	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

const (
	ModeServer = "server"
	ModeWorker = "worker"
)

// Components всё, что собирает di.BuildApp.
// Metrics и CleanupConsumer могут быть nil, если выключены в конфигурации.
type Components struct {
	Config          *config.Config
	Logger          *slog.Logger
	ModuleUseCase   usecase.ModuleUseCase
	AuthUseCase     usecase.AuthUseCase
	Sessions        *auth.SessionManager
	Health          handler.Pinger
	Metrics         *metrics.Metrics
	CleanupConsumer ports.CleanupConsumer
	// Closers закрываются в обратном порядке при завершении
	Closers []func() error
}

type App struct {
	Config *config.Config
	c      Components
}

func NewApp(c Components) *App {
	return &App{Config: c.Config, c: c}
}

// LoggerIns возвращает основной логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.c.Logger
}

// Run запускает приложение в выбранном режиме и блокируется до сигнала завершения
func (a *App) Run(ctx context.Context, mode *string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := a.c.Logger
	logger.Info("starting", "mode", *mode)

	var err error
	switch *mode {
	case ModeServer:
		err = runServer(ctx, a)
	case ModeWorker:
		err = runWorker(ctx, a)
	default:
		err = fmt.Errorf("неизвестный режим: %s (используйте 'server' или 'worker')", *mode)
	}

	// ресурсы закрываем в любом случае
	if closeErr := a.Shutdown(); closeErr != nil {
		logger.Error("shutdown finished with errors", "error", closeErr)
	}
	if err != nil {
		return err
	}

	logger.Info("stopped")
	return nil
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.c.Closers) - 1; i >= 0; i-- {
		if err := a.c.Closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.c.Closers = nil
	return errors.Join(errs...)
}
