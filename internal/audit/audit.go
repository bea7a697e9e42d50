package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType — тип audit-события жизненного цикла публикации.
type EventType string

// Типы событий.
const (
	EventJobDispatched EventType = "publish.dispatched"
	EventJobCompleted  EventType = "publish.completed"
	EventJobRetrying   EventType = "publish.retrying"
	EventJobFailed     EventType = "publish.failed"
	EventJobCanceled   EventType = "publish.canceled"
)

// Event — одно audit-событие.
//
// События потребляются аналитикой и audit-логом; движок их только
// эмитит и никогда не ждёт подтверждения.
type Event struct {
	// ID — уникальный идентификатор события.
	ID string `json:"id"`

	// Type — тип события.
	Type EventType `json:"type"`

	// JobID — queue job, к которому относится событие.
	JobID uuid.UUID `json:"job_id"`

	// TargetID — post target.
	TargetID uuid.UUID `json:"target_id"`

	// WorkspaceID — рабочее пространство.
	WorkspaceID uuid.UUID `json:"workspace_id"`

	// Platform — платформа назначения.
	Platform string `json:"platform,omitempty"`

	// Attempt — номер попытки на момент события.
	Attempt int `json:"attempt"`

	// ErrorCode — классифицированный код (для failed).
	ErrorCode string `json:"error_code,omitempty"`

	// Error — текст ошибки.
	Error string `json:"error,omitempty"`

	// DurationMs — длительность попытки.
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Timestamp — время события.
	Timestamp time.Time `json:"timestamp"`
}

// Emitter публикует audit-события.
//
// Контракт fire-and-forget: Emit не возвращает ошибку — сбой эмиссии
// логируется реализацией и никогда не прерывает переход job'а.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// NopEmitter — Emitter, отбрасывающий события.
// Используется когда RabbitMQ не настроен, и в тестах.
type NopEmitter struct{}

// Emit реализует Emitter.
func (NopEmitter) Emit(context.Context, Event) {}

// NewEvent создаёт событие с заполненными ID и timestamp.
func NewEvent(eventType EventType) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}
