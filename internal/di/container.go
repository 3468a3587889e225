package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/ModuleHub/internal/adapter/storage/minio"
	"github.com/GoArmGo/ModuleHub/internal/app"
	"github.com/GoArmGo/ModuleHub/internal/archive"
	"github.com/GoArmGo/ModuleHub/internal/auth"
	"github.com/GoArmGo/ModuleHub/internal/config"
	"github.com/GoArmGo/ModuleHub/internal/core/ports"
	"github.com/GoArmGo/ModuleHub/internal/database/client"
	"github.com/GoArmGo/ModuleHub/internal/database/postgres"
	"github.com/GoArmGo/ModuleHub/internal/database/storage"
	"github.com/GoArmGo/ModuleHub/internal/logger"
	"github.com/GoArmGo/ModuleHub/internal/metrics"
	"github.com/GoArmGo/ModuleHub/internal/rabbitmq"
	"github.com/GoArmGo/ModuleHub/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
func BuildApp() (_ *app.App, err error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// при ошибке закрываем то, что уже успели открыть
	var closers []func() error
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
		}
	}()

	// 2. PostgreSQL клиент, он же применяет миграции
	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, dbClient.Close)

	// 3. Инициализация хранилищ
	st, err := buildStorages(cfg, dbClient, slogger)
	if err != nil {
		return nil, err
	}
	if st.close != nil {
		closers = append(closers, st.close)
	}

	// 4. Внешние сервисы, оба необязательны
	opts := usecase.ModuleOptions{
		PublicBaseURL:  cfg.PublicBaseURL,
		ExtractTimeout: cfg.ExtractTimeout,
		ReconcileGrace: cfg.ReconcileGrace,
		// ограничиваем число параллельных загрузок
		UploadLimiter: make(chan struct{}, cfg.UploadConcurrency),
	}

	if cfg.ArchiveStoreEnabled() {
		archiveStore, err := minio.NewMinioClient(context.Background(), cfg, slogger)
		if err != nil {
			return nil, err
		}
		opts.ArchiveStore = archiveStore
	} else {
		slogger.Info("MINIO_ENDPOINT not set, raw archives will not be retained")
	}

	var consumer ports.CleanupConsumer
	if cfg.QueueEnabled() {
		rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, rabbitMQClient.Close)
		opts.Publisher = rabbitMQClient
		consumer = rabbitMQClient
	} else {
		slogger.Info("RABBITMQ_URL not set, failed cleanups will only be logged")
	}

	// 5. Метрики
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		opts.Metrics = m
	}

	// 6. Бизнес-логика
	extractor := archive.NewExtractor(cfg.UploadsDir, cfg.ModulesDir, archive.Limits{
		MaxArchiveBytes: cfg.MaxUploadBytes,
		MaxTotalBytes:   cfg.MaxExtractBytes,
		MaxEntryBytes:   cfg.MaxEntryBytes,
		MaxEntries:      cfg.MaxArchiveEntries,
	}, slogger)

	moduleUseCase := usecase.NewModuleUseCase(st.modules, extractor, opts, slogger)
	authUseCase := usecase.NewAuthUseCase(st.users, auth.NewPasswordHasher(cfg.BcryptCost), slogger)

	// 7. Сборка итогового приложения
	application := app.NewApp(app.Components{
		Config:          cfg,
		Logger:          slogger,
		ModuleUseCase:   moduleUseCase,
		AuthUseCase:     authUseCase,
		Sessions:        auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure, st.sessions),
		Health:          st.modules,
		Metrics:         m,
		CleanupConsumer: consumer,
		Closers:         closers,
	})

	slogger.Info("all dependencies initialized", "storage_driver", cfg.StorageDriver)
	return application, nil
}

type storages struct {
	users    ports.UserStorage
	modules  ports.ModuleStorage
	sessions ports.SessionStorage
	// close закрывает отдельный пул gorm, для sqlx nil
	close func() error
}

// buildStorages выбирает реализацию хранилищ по STORAGE_DRIVER.
func buildStorages(cfg *config.Config, dbClient *client.Client, log *slog.Logger) (storages, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLX:
		return storages{
			users:    storage.NewUserStorage(dbClient.DB, log),
			modules:  storage.NewModuleStorage(dbClient.DB, log),
			sessions: storage.NewSessionStorage(dbClient.DB, log),
		}, nil
	case config.DriverGorm:
		gormDB, err := postgres.Open(cfg.DatabaseURL, log)
		if err != nil {
			return storages{}, err
		}
		return storages{
			users:    postgres.NewGormUserStorage(gormDB, log),
			modules:  postgres.NewGormModuleStorage(gormDB, log),
			sessions: postgres.NewGormSessionStorage(gormDB, log),
			close:    func() error { return postgres.Close(gormDB) },
		}, nil
	default:
		return storages{}, fmt.Errorf("неизвестный STORAGE_DRIVER: %s", cfg.StorageDriver)
	}
}
