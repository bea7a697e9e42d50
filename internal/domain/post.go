package domain

import (
	"time"

	"github.com/google/uuid"
)

// Post — единица контента, создаваемая пользователем.
//
// Движок публикации читает posts и двигает их статус; создание и
// редактирование контента — зона ответственности внешнего UI.
type Post struct {
	// ID — уникальный идентификатор post.
	ID uuid.UUID `json:"id"`

	// WorkspaceID — рабочее пространство.
	WorkspaceID uuid.UUID `json:"workspace_id"`

	// Content — основной текст публикации.
	Content string `json:"content"`

	// MediaURLs — прикреплённые медиа.
	MediaURLs []string `json:"media_urls,omitempty"`

	// Settings — платформо-независимые настройки публикации.
	Settings map[string]any `json:"settings,omitempty"`

	// Status — статус post в контентном пуле.
	Status PostStatus `json:"status"`

	// QueueName — evergreen очередь, в которой состоит post (если состоит).
	QueueName string `json:"queue_name,omitempty"`

	// CreatedAt — время создания post.
	CreatedAt time.Time `json:"created_at"`
}

// SocialAccount — подключённый аккаунт соцсети.
//
// Движку нужны только platform и учётные данные; OAuth-обмен
// и refresh токенов живут снаружи.
type SocialAccount struct {
	// ID — уникальный идентификатор аккаунта.
	ID uuid.UUID `json:"id"`

	// WorkspaceID — рабочее пространство.
	WorkspaceID uuid.UUID `json:"workspace_id"`

	// UserID — владелец аккаунта.
	UserID uuid.UUID `json:"user_id"`

	// Platform — платформа: "twitter", "linkedin", "facebook" и т.д.
	Platform string `json:"platform"`

	// AccessToken — текущий access token.
	AccessToken string `json:"-"`

	// RefreshToken — refresh token (может быть пустым).
	RefreshToken string `json:"-"`

	// TokenExpiresAt — время истечения access token.
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}
