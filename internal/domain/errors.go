package domain

import "errors"

var (
	// ErrNotFound запись не найдена в хранилище
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken пользователь с таким email уже существует
	ErrEmailTaken = errors.New("email already registered")
)
