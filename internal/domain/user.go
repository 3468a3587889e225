// internal/domain/user.go
package domain

import "time"

// User представляет учётную запись пользователя.
// Соответствует таблице 'users' в базе данных; email уникален на уровне схемы.
type User struct {
	ID           int64     `json:"id" db:"id" gorm:"primaryKey"`
	Email        string    `json:"email" db:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" db:"password" gorm:"column:password;not null"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
