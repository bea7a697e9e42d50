package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	// Для queue jobs означает "уже запланировано" и не является ошибкой
	// для вызывающего scheduler'а.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — операция невозможна в текущем состоянии.
	// Возвращается claim'ом, когда job уже не pending/retrying.
	ErrInvalidState = errors.New("invalid state")
)
