package domain

import "time"

// Module представляет загруженный и распакованный учебный модуль,
// соответствует таблице modules в бд.
// Folder одновременно имя каталога на диске и ключ для удаления.
type Module struct {
	ID        int64     `json:"id" db:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" db:"user_id" gorm:"not null;index"`
	Name      string    `json:"name" db:"name" gorm:"not null"`
	Folder    string    `json:"folder" db:"folder" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

func (Module) TableName() string {
	return "modules"
}

// ModuleStatus описывает, удалось ли найти точку входа модуля при последней проверке.
type ModuleStatus string

const (
	// ModuleReady точка входа найдена, URL заполнен
	ModuleReady ModuleStatus = "ready"
	// ModuleUnresolved каталог есть, но ни один из известных файлов не найден
	ModuleUnresolved ModuleStatus = "unresolved"
	// ModuleMissing запись есть, а каталога на диске нет
	ModuleMissing ModuleStatus = "missing"
)

// ModuleView элемент ответа /list.
type ModuleView struct {
	Name   string       `json:"name"`
	Folder string       `json:"folder"`
	URL    string       `json:"url,omitempty"`
	Status ModuleStatus `json:"status"`
}
