package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GoArmGo/ModuleHub/internal/domain"
)

// ModuleStorage реализует интерфейс ports.ModuleStorage на sqlx
type ModuleStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewModuleStorage(db *sqlx.DB, logger *slog.Logger) *ModuleStorage {
	return &ModuleStorage{db: db, logger: logger}
}

// CreateModule сохраняет запись о модуле, ID и CreatedAt заполняет база
func (s *ModuleStorage) CreateModule(ctx context.Context, m *domain.Module) error {
	start := time.Now()

	query := `
	INSERT INTO modules (user_id, name, folder)
	VALUES (:user_id, :name, :folder)
	RETURNING id, created_at
	`
	rows, err := s.db.NamedQueryContext(ctx, query, m)
	if err != nil {
		s.logger.Error("failed to insert module", "folder", m.Folder, "error", err)
		return fmt.Errorf("ошибка при сохранении модуля: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("ошибка при сохранении модуля: %w", err)
		}
		return fmt.Errorf("ошибка при сохранении модуля: no row returned")
	}
	if err := rows.Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("scan inserted module: %w", err)
	}

	s.logger.Info("module saved",
		"id", m.ID,
		"folder", m.Folder,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ListModulesByUser возвращает модули пользователя, новые первыми
func (s *ModuleStorage) ListModulesByUser(ctx context.Context, userID int64) ([]domain.Module, error) {
	modules := []domain.Module{}
	query := `
	SELECT id, user_id, name, folder, created_at
	FROM modules
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	`
	if err := s.db.SelectContext(ctx, &modules, query, userID); err != nil {
		s.logger.Error("failed to list modules", "user_id", userID, "error", err)
		return nil, fmt.Errorf("ошибка при получении списка модулей: %w", err)
	}
	return modules, nil
}

// DeleteModule удаляет запись о модуле, только если она принадлежит userID.
// Возвращает false, если удалять было нечего.
func (s *ModuleStorage) DeleteModule(ctx context.Context, userID int64, folder string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM modules WHERE user_id = $1 AND folder = $2`, userID, folder)
	if err != nil {
		s.logger.Error("failed to delete module", "folder", folder, "error", err)
		return false, fmt.Errorf("ошибка при удалении модуля: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListFolders возвращает все каталоги, на которые ссылаются записи
func (s *ModuleStorage) ListFolders(ctx context.Context) ([]string, error) {
	folders := []string{}
	if err := s.db.SelectContext(ctx, &folders, `SELECT DISTINCT folder FROM modules`); err != nil {
		return nil, fmt.Errorf("list module folders: %w", err)
	}
	return folders, nil
}

// DeleteModulesByFolder удаляет все записи, ссылающиеся на каталог
func (s *ModuleStorage) DeleteModulesByFolder(ctx context.Context, folder string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM modules WHERE folder = $1`, folder)
	if err != nil {
		return 0, fmt.Errorf("delete modules by folder: %w", err)
	}
	return res.RowsAffected()
}

func (s *ModuleStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
