package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/GoArmGo/ModuleHub/internal/domain"
)

// GormModuleStorage реализует интерфейс ports.ModuleStorage с использованием GORM
type GormModuleStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormModuleStorage(db *gorm.DB, logger *slog.Logger) *GormModuleStorage {
	return &GormModuleStorage{db: db, logger: logger}
}

// CreateModule сохраняет запись о модуле
func (s *GormModuleStorage) CreateModule(ctx context.Context, m *domain.Module) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		s.logger.Error("failed to save module", "folder", m.Folder, "error", err)
		return fmt.Errorf("ошибка при сохранении модуля с GORM: %w", err)
	}
	s.logger.Info("module saved", "id", m.ID, "folder", m.Folder)
	return nil
}

// ListModulesByUser возвращает модули пользователя, новые первыми
func (s *GormModuleStorage) ListModulesByUser(ctx context.Context, userID int64) ([]domain.Module, error) {
	modules := []domain.Module{}
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&modules)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при получении списка модулей с GORM: %w", result.Error)
	}
	return modules, nil
}

func (s *GormModuleStorage) DeleteModule(ctx context.Context, userID int64, folder string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND folder = ?", userID, folder).
		Delete(&domain.Module{})
	if result.Error != nil {
		return false, fmt.Errorf("ошибка при удалении модуля с GORM: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormModuleStorage) ListFolders(ctx context.Context) ([]string, error) {
	folders := []string{}
	err := s.db.WithContext(ctx).Model(&domain.Module{}).Distinct().Pluck("folder", &folders).Error
	if err != nil {
		return nil, fmt.Errorf("list module folders: %w", err)
	}
	return folders, nil
}

func (s *GormModuleStorage) DeleteModulesByFolder(ctx context.Context, folder string) (int64, error) {
	result := s.db.WithContext(ctx).Where("folder = ?", folder).Delete(&domain.Module{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete modules by folder: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormModuleStorage) Ping(ctx context.Context) error {
	return ping(ctx, s.db)
}
