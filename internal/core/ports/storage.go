package ports

import (
	"context"
	"io"
	"time"

	"github.com/GoArmGo/ModuleHub/internal/domain"
)

// UserStorage определяет методы для взаимодействия с хранилищем пользователей
type UserStorage interface {
	// CreateUser сохраняет пользователя и заполняет его ID.
	// При занятом email возвращает domain.ErrEmailTaken.
	CreateUser(ctx context.Context, user *domain.User) error
	// GetUserByEmail возвращает domain.ErrNotFound, если пользователя нет.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ModuleStorage определяет методы для взаимодействия с реестром модулей
type ModuleStorage interface {
	CreateModule(ctx context.Context, module *domain.Module) error
	ListModulesByUser(ctx context.Context, userID int64) ([]domain.Module, error)
	// DeleteModule удаляет запись только если она принадлежит userID.
	// Возвращает false, если удалять было нечего.
	DeleteModule(ctx context.Context, userID int64, folder string) (bool, error)

	// ListFolders и DeleteModulesByFolder нужны сверке при старте
	ListFolders(ctx context.Context) ([]string, error)
	DeleteModulesByFolder(ctx context.Context, folder string) (int64, error)

	Ping(ctx context.Context) error
}

// ArchiveStore приватное хранилище исходных архивов (S3, MinIO)
type ArchiveStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

// SessionStorage хранит отозванные токены сессий
type SessionStorage interface {
	// RevokeSession повторный отзыв того же id не ошибка
	RevokeSession(ctx context.Context, id string, expiresAt time.Time) error
	IsSessionRevoked(ctx context.Context, id string) (bool, error)
	// PurgeRevokedSessions удаляет записи с истёкшим сроком
	PurgeRevokedSessions(ctx context.Context, before time.Time) (int64, error)
}
