package archive

import "github.com/google/uuid"

// NewFolder генерирует идентификатор каталога модуля.
// Случайный UUID заменяет схему "timestamp-имя файла", у которой было окно коллизий.
func NewFolder() string {
	return uuid.NewString()
}

// ValidFolder разрешает только канонические UUID в нижнем регистре.
// Всё, что приходит от клиента, проверяется этой функцией до обращения к диску.
func ValidFolder(folder string) bool {
	id, err := uuid.Parse(folder)
	if err != nil {
		return false
	}
	return id.String() == folder
}
