package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionStorage реализует интерфейс ports.SessionStorage на sqlx
type SessionStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewSessionStorage(db *sqlx.DB, logger *slog.Logger) *SessionStorage {
	return &SessionStorage{db: db, logger: logger}
}

func (s *SessionStorage) RevokeSession(ctx context.Context, id string, expiresAt time.Time) error {
	query := `INSERT INTO revoked_sessions (id, expires_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, id, expiresAt); err != nil {
		s.logger.Error("failed to revoke session", "error", err)
		return fmt.Errorf("insert revoked session: %w", err)
	}
	return nil
}

func (s *SessionStorage) IsSessionRevoked(ctx context.Context, id string) (bool, error) {
	var revoked bool
	err := s.db.GetContext(ctx, &revoked, `SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("select revoked session: %w", err)
	}
	return revoked, nil
}

func (s *SessionStorage) PurgeRevokedSessions(ctx context.Context, before time.Time) (int64, error) {
	start := time.Now()

	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	s.logger.Info("expired session revocations purged",
		"removed", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}
