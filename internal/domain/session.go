package domain

import "time"

// RevokedSession идентификатор токена сессии, отозванного при выходе.
// Запись нужна только до ExpiresAt: после этого токен и так недействителен.
type RevokedSession struct {
	ID        string    `db:"id" gorm:"primaryKey"`
	ExpiresAt time.Time `db:"expires_at" gorm:"not null;index"`
}

func (RevokedSession) TableName() string {
	return "revoked_sessions"
}
