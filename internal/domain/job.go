package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAttempts — лимит попыток публикации по умолчанию.
const DefaultMaxAttempts = 3

// retryBaseDelay — базовая задержка exponential backoff.
// delay = retryBaseDelay * 2^(attempt-1): ~1, 2, 4 минуты.
const retryBaseDelay = time.Minute

// QueueJob — одна диспетчеризуемая попытка публикации post target.
//
// Job создаётся scheduler'ом в статусе pending, забирается воркером
// через атомарный claim (pending/retrying → running) и завершается
// в completed, retrying или failed. Терминальные jobs никогда не
// переводятся обратно.
//
// Инвариант: AttemptNumber <= MaxAttempts. На пару
// (schedule_id, post_target_id) существует не более одного
// нетерминального job — дубликаты отсекаются уникальным индексом.
type QueueJob struct {
	// ID — уникальный идентификатор job.
	ID uuid.UUID `json:"id"`

	// WorkspaceID — рабочее пространство.
	WorkspaceID uuid.UUID `json:"workspace_id"`

	// PostID — публикуемый post.
	PostID uuid.UUID `json:"post_id"`

	// PostTargetID — target, ради которого создан job.
	PostTargetID uuid.UUID `json:"post_target_id"`

	// ScheduleID — schedule, породивший job.
	ScheduleID uuid.UUID `json:"schedule_id"`

	// ScheduledAt — время, на которое запланирована публикация.
	ScheduledAt time.Time `json:"scheduled_at"`

	// Status — текущий статус job.
	Status JobStatus `json:"status"`

	// AttemptNumber — количество завершившихся неудачей попыток.
	AttemptNumber int `json:"attempt_number"`

	// MaxAttempts — лимит попыток (default 3).
	MaxAttempts int `json:"max_attempts"`

	// NextRetryAt — время следующей попытки (для retrying).
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	// ErrorMessage — текст последней ошибки.
	ErrorMessage string `json:"error_message,omitempty"`

	// ErrorCode — классифицированный код терминальной ошибки.
	ErrorCode ErrorCode `json:"error_code,omitempty"`

	// ExecutionDurationMs — длительность последней попытки.
	ExecutionDurationMs int64 `json:"execution_duration_ms,omitempty"`

	// ProviderResponse — сырой ответ платформы.
	ProviderResponse string `json:"provider_response,omitempty"`

	// LeaseExpiresAt — срок аренды для running jobs. Reaper возвращает
	// jobs с истёкшей арендой обратно в pending.
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty"`

	// StartedAt — время начала последней попытки.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время терминального завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания job.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinished возвращает true, если job в терминальном статусе.
func (j *QueueJob) IsFinished() bool {
	return j.Status.IsTerminal()
}

// MarkRunning переводит job в статус running с арендой до lease.
func (j *QueueJob) MarkRunning(now time.Time, lease time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.LeaseExpiresAt = &lease
	j.UpdatedAt = now
}

// MarkCompleted фиксирует успешную публикацию.
func (j *QueueJob) MarkCompleted(durationMs int64, providerResponse string) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.ExecutionDurationMs = durationMs
	j.ProviderResponse = providerResponse
	j.ErrorMessage = ""
	j.NextRetryAt = nil
	j.LeaseExpiresAt = nil
	j.FinishedAt = &now
	j.UpdatedAt = now
}

// RecordFailure фиксирует неудачную попытку и решает дальнейшую судьбу job.
//
// Если бюджет попыток не исчерпан — job уходит в retrying с
// next_retry_at = now + BackoffDelay. Иначе — в failed с
// классифицированным кодом ошибки. Возвращает true, если будет retry.
func (j *QueueJob) RecordFailure(now time.Time, errMsg string) bool {
	delay := j.BackoffDelay()
	j.AttemptNumber++
	j.ErrorMessage = errMsg
	j.LeaseExpiresAt = nil
	j.UpdatedAt = now

	if j.AttemptNumber < j.MaxAttempts {
		retryAt := now.Add(delay)
		j.Status = JobStatusRetrying
		j.NextRetryAt = &retryAt
		return true
	}

	j.Status = JobStatusFailed
	j.ErrorCode = Classify(errMsg)
	j.NextRetryAt = nil
	j.FinishedAt = &now
	return false
}

// MarkFailed переводит job в failed, минуя оставшиеся попытки.
// Используется при permanent-ошибках в fail-fast режиме.
func (j *QueueJob) MarkFailed(now time.Time, errMsg string) {
	j.AttemptNumber++
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.ErrorCode = Classify(errMsg)
	j.NextRetryAt = nil
	j.LeaseExpiresAt = nil
	j.FinishedAt = &now
	j.UpdatedAt = now
}

// MarkCanceled переводит job в canceled (внешняя отмена).
func (j *QueueJob) MarkCanceled(now time.Time) {
	j.Status = JobStatusCanceled
	j.NextRetryAt = nil
	j.LeaseExpiresAt = nil
	j.FinishedAt = &now
	j.UpdatedAt = now
}

// BackoffDelay возвращает задержку перед следующей попыткой:
// 60s * 2^AttemptNumber. Без cap и jitter.
func (j *QueueJob) BackoffDelay() time.Duration {
	return retryBaseDelay << j.AttemptNumber
}

// CanRetry проверяет, остался ли бюджет попыток.
func (j *QueueJob) CanRetry() bool {
	return j.AttemptNumber < j.MaxAttempts
}
