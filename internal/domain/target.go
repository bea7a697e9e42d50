package domain

import (
	"time"

	"github.com/google/uuid"
)

// PostTarget — привязка post к одному аккаунту назначения.
//
// Один post может публиковаться в несколько аккаунтов; каждый target
// ведёт собственный publish-статус и результат. После published/failed/
// canceled target больше не меняется.
type PostTarget struct {
	// ID — уникальный идентификатор target.
	ID uuid.UUID `json:"id"`

	// PostID — публикуемый post.
	PostID uuid.UUID `json:"post_id"`

	// SocialAccountID — аккаунт назначения.
	SocialAccountID uuid.UUID `json:"social_account_id"`

	// WorkspaceID — рабочее пространство.
	WorkspaceID uuid.UUID `json:"workspace_id"`

	// ContentOverride — текст, заменяющий Post.Content для этого target.
	ContentOverride string `json:"content_override,omitempty"`

	// MediaOverride — медиа, заменяющие Post.MediaURLs.
	MediaOverride []string `json:"media_override,omitempty"`

	// SettingsOverride — настройки поверх Post.Settings (по ключам).
	SettingsOverride map[string]any `json:"settings_override,omitempty"`

	// PublishStatus — текущий статус публикации.
	PublishStatus PublishStatus `json:"publish_status"`

	// PublishedAt — время успешной публикации.
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// PublishedPostID — ID публикации, возвращённый платформой.
	PublishedPostID string `json:"published_post_id,omitempty"`

	// PublishedPostURL — URL публикации на платформе.
	PublishedPostURL string `json:"published_post_url,omitempty"`

	// PublishError — человекочитаемая ошибка последней неудачи.
	PublishError string `json:"publish_error,omitempty"`

	// RetryCount — количество неудачных попыток публикации.
	RetryCount int `json:"retry_count"`

	// CreatedAt — время создания target.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// MarkPublishing переводит target в статус publishing.
func (t *PostTarget) MarkPublishing() {
	t.PublishStatus = PublishStatusPublishing
	t.UpdatedAt = time.Now()
}

// MarkPublished фиксирует успешную публикацию.
func (t *PostTarget) MarkPublished(postID, url string) {
	now := time.Now()
	t.PublishStatus = PublishStatusPublished
	t.PublishedAt = &now
	t.PublishedPostID = postID
	t.PublishedPostURL = url
	t.PublishError = ""
	t.UpdatedAt = now
}

// MarkFailed фиксирует окончательную неудачу публикации.
func (t *PostTarget) MarkFailed(errMsg string) {
	now := time.Now()
	t.PublishStatus = PublishStatusFailed
	t.PublishError = errMsg
	t.UpdatedAt = now
}
