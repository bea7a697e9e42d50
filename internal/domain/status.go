package domain

// JobStatus — статус выполнения queue job.
//
// Жизненный цикл:
//
//	pending → running → completed
//	                  ↘ retrying → running (следующий pickup)
//	                  ↘ failed
//	canceled — достижим из любого нетерминального статуса
type JobStatus string

const (
	// JobStatusPending — job создан и ожидает dispatch.
	JobStatusPending JobStatus = "pending"

	// JobStatusQueued — job принят воркером, но ещё не стартовал.
	JobStatusQueued JobStatus = "queued"

	// JobStatusRunning — job выполняется (publish в процессе).
	JobStatusRunning JobStatus = "running"

	// JobStatusCompleted — публикация прошла успешно.
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed — попытки исчерпаны или ошибка постоянная.
	JobStatusFailed JobStatus = "failed"

	// JobStatusRetrying — транзиентная ошибка, ждём next_retry_at.
	JobStatusRetrying JobStatus = "retrying"

	// JobStatusCanceled — job отменён извне.
	JobStatusCanceled JobStatus = "canceled"
)

// IsTerminal возвращает true, если статус финальный.
// Терминальные jobs никогда не переводятся обратно.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// PublishStatus — статус публикации post target.
//
// Жизненный цикл:
//
//	pending → queued → publishing → published
//	                              ↘ failed
//	canceled / skipped — выставляются извне
type PublishStatus string

const (
	// PublishStatusPending — target создан, публикация ещё не запланирована.
	PublishStatusPending PublishStatus = "pending"

	// PublishStatusQueued — для target создан queue job.
	PublishStatusQueued PublishStatus = "queued"

	// PublishStatusPublishing — публикация выполняется прямо сейчас.
	PublishStatusPublishing PublishStatus = "publishing"

	// PublishStatusPublished — контент опубликован на платформе.
	PublishStatusPublished PublishStatus = "published"

	// PublishStatusFailed — публикация не удалась окончательно.
	PublishStatusFailed PublishStatus = "failed"

	// PublishStatusCanceled — публикация отменена пользователем.
	PublishStatusCanceled PublishStatus = "canceled"

	// PublishStatusSkipped — target пропущен (например, аккаунт отключён).
	PublishStatusSkipped PublishStatus = "skipped"
)

// IsTerminal возвращает true, если статус финальный.
func (s PublishStatus) IsTerminal() bool {
	switch s {
	case PublishStatusPublished, PublishStatusFailed, PublishStatusCanceled:
		return true
	default:
		return false
	}
}

// PostStatus — статус post в контентном пуле.
type PostStatus string

const (
	// PostStatusDraft — черновик; только drafts выбираются из evergreen очереди.
	PostStatusDraft PostStatus = "draft"

	// PostStatusQueued — post взят из evergreen очереди, повторно не выбирается.
	PostStatusQueued PostStatus = "queued"

	// PostStatusScheduled — post привязан к single/recurring расписанию.
	PostStatusScheduled PostStatus = "scheduled"

	// PostStatusPublished — все targets опубликованы.
	PostStatusPublished PostStatus = "published"
)
