package publish

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Publisher выполняет один publish-вызов к внешней платформе.
//
// Реализации живут снаружи движка (по одной на платформу). Обычные
// неудачи возвращаются внутри Result, а не через error — error
// зарезервирован для инфраструктурных сбоев самого вызова; processor
// трактует и то и другое как неудачу публикации.
type Publisher interface {
	Publish(ctx context.Context, req *Request) (*Result, error)
}

// Request — параметры одного publish-вызова.
type Request struct {
	// Platform — платформа назначения ("twitter", "linkedin", ...).
	Platform string

	// AccountID — аккаунт, от имени которого публикуем.
	AccountID uuid.UUID

	// Credentials — действующий access token аккаунта.
	Credentials *oauth2.Token

	// Content — итоговый контент после merge с overrides.
	Content Content
}

// Result — результат publish-вызова.
type Result struct {
	// Success — удалась ли публикация.
	Success bool

	// PostID — ID публикации, присвоенный платформой.
	PostID string

	// URL — ссылка на публикацию.
	URL string

	// Error — текст ошибки при Success=false.
	Error string

	// RawResponse — сырой ответ платформы (для диагностики).
	RawResponse string
}

// Content — платформо-независимый контент публикации.
type Content struct {
	// Text — текст публикации.
	Text string `json:"text"`

	// MediaURLs — прикреплённые медиа.
	MediaURLs []string `json:"media_urls,omitempty"`

	// Settings — настройки публикации (visibility, first comment и т.д.).
	Settings map[string]any `json:"settings,omitempty"`
}
