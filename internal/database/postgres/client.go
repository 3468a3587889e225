// Package postgres второе хранилище поверх GORM. Выбирается STORAGE_DRIVER=gorm,
// схема при этом всё равно создаётся миграциями из client.NewClient.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open открывает GORM поверх собственного пула pgx по DSN
func Open(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	return NewGormDB(gormpg.Open(dsn), logger)
}

// NewGormDB инициализирует GORM с переданным диалектом.
// Ошибки драйвера переводятся в gorm.ErrDuplicatedKey и т.п.
func NewGormDB(dialector gorm.Dialector, logger *slog.Logger) (*gorm.DB, error) {
	start := time.Now()

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("failed to open GORM connection", "error", err)
		return nil, fmt.Errorf("ошибка открытия соединения GORM: %w", err)
	}

	logger.Info("GORM connection established",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return db, nil
}

// Close закрывает пул соединений под GORM
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
