package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoArmGo/ModuleHub/internal/domain"
)

// GormSessionStorage реализует интерфейс ports.SessionStorage с использованием GORM
type GormSessionStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormSessionStorage(db *gorm.DB, logger *slog.Logger) *GormSessionStorage {
	return &GormSessionStorage{db: db, logger: logger}
}

func (s *GormSessionStorage) RevokeSession(ctx context.Context, id string, expiresAt time.Time) error {
	rec := domain.RevokedSession{ID: id, ExpiresAt: expiresAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		s.logger.Error("failed to revoke session", "error", err)
		return fmt.Errorf("ошибка при отзыве сессии с GORM: %w", err)
	}
	return nil
}

func (s *GormSessionStorage) IsSessionRevoked(ctx context.Context, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.RevokedSession{}).Where("id = ?", id).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке сессии с GORM: %w", err)
	}
	return n > 0, nil
}

func (s *GormSessionStorage) PurgeRevokedSessions(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&domain.RevokedSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired revoked sessions: %w", result.Error)
	}
	s.logger.Info("expired session revocations purged", "removed", result.RowsAffected)
	return result.RowsAffected, nil
}
