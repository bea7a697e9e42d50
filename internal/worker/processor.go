package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Publika/internal/audit"
	"github.com/shaiso/Publika/internal/credentials"
	"github.com/shaiso/Publika/internal/domain"
	"github.com/shaiso/Publika/internal/publish"
	"github.com/shaiso/Publika/internal/repo"
	"github.com/shaiso/Publika/internal/telemetry"
)

// Default configuration values.
const (
	defaultPublishTimeout = 60 * time.Second
	defaultLeaseTTL       = 5 * time.Minute
)

// JobStore — операции над queue jobs, нужные processor'у.
type JobStore interface {
	Claim(ctx context.Context, id uuid.UUID, now time.Time, leaseTTL time.Duration) (*domain.QueueJob, error)
	Update(ctx context.Context, job *domain.QueueJob) error
}

// TargetStore — операции над post targets.
type TargetStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PostTarget, error)
	Update(ctx context.Context, target *domain.PostTarget) error
}

// PostStore — чтение posts.
type PostStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)
}

// AccountStore — чтение social accounts.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SocialAccount, error)
}

// Processor выполняет один queue job от claim до терминального статуса.
//
// Последовательность:
//  1. Атомарный claim (pending/retrying → running с арендой)
//  2. Загрузка target, post, account
//  3. Проверка credentials (без сетевого вызова при их отсутствии)
//  4. Publish-вызов с дедлайном PublishTimeout
//  5. Успех → completed + target published; неудача → RecordFailure
//     (retrying либо failed по бюджету попыток)
//
// Processor никогда не роняет job молча: любая неудача фиксируется
// в job и зеркалируется в target.
type Processor struct {
	jobs     JobStore
	targets  TargetStore
	posts    PostStore
	accounts AccountStore

	creds     credentials.Provider
	publisher publish.Publisher
	events    audit.Emitter

	publishTimeout time.Duration
	leaseTTL       time.Duration

	// failFast — permanent-ошибки (VALIDATION_ERROR, NOT_FOUND и т.д.)
	// сразу переводят job в failed, минуя оставшиеся попытки.
	failFast bool

	logger *slog.Logger
}

// ProcessorConfig — конфигурация Processor.
type ProcessorConfig struct {
	Jobs     JobStore
	Targets  TargetStore
	Posts    PostStore
	Accounts AccountStore

	Credentials credentials.Provider
	Publisher   publish.Publisher

	// Events (опционально; если nil — используется audit.NopEmitter)
	Events audit.Emitter

	// PublishTimeout — дедлайн одного publish-вызова (default: 60s).
	PublishTimeout time.Duration

	// LeaseTTL — срок аренды running job (default: 5m).
	LeaseTTL time.Duration

	// FailFastPermanent — не ретраить permanent-ошибки.
	FailFastPermanent bool

	// Logger
	Logger *slog.Logger
}

// NewProcessor создаёт новый Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	leaseTTL := cfg.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = defaultLeaseTTL
	}

	events := cfg.Events
	if events == nil {
		events = audit.NopEmitter{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		jobs:           cfg.Jobs,
		targets:        cfg.Targets,
		posts:          cfg.Posts,
		accounts:       cfg.Accounts,
		creds:          cfg.Credentials,
		publisher:      cfg.Publisher,
		events:         events,
		publishTimeout: publishTimeout,
		leaseTTL:       leaseTTL,
		failFast:       cfg.FailFastPermanent,
		logger:         logger,
	}
}

// ProcessJob забирает job и доводит его до следующего статуса.
//
// Возвращает ErrJobNotClaimable, если job уже забран или терминален —
// ожидаемая ситуация, вызывающая сторона не трактует её как сбой.
func (p *Processor) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now()

	// 1. Атомарный claim: pending/retrying → running.
	// Конкурирующий worker получит здесь ErrInvalidState.
	job, err := p.jobs.Claim(ctx, jobID, now, p.leaseTTL)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidState) || errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotClaimable, jobID)
		}
		return fmt.Errorf("claim job: %w", err)
	}

	p.logger.Info("job started",
		"job_id", job.ID,
		"target_id", job.PostTargetID,
		"attempt", job.AttemptNumber+1,
		"max_attempts", job.MaxAttempts,
	)

	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()

	dispatched := audit.NewEvent(audit.EventJobDispatched)
	fillEvent(&dispatched, job, "")
	p.events.Emit(ctx, dispatched)

	// 2. Загружаем target, post, account.
	target, post, account, err := p.loadJobData(ctx, job)
	if err != nil {
		// Битая ссылка — ретраить бессмысленно.
		if errors.Is(err, ErrJobDataMissing) {
			return p.failJob(ctx, job, target, "", err.Error())
		}
		// Инфраструктурная ошибка БД — обычный retry-путь.
		return p.recordFailure(ctx, job, target, "", err.Error())
	}

	target.MarkPublishing()
	if err := p.targets.Update(ctx, target); err != nil {
		return p.recordFailure(ctx, job, nil, account.Platform, fmt.Sprintf("update target to publishing: %s", err))
	}

	// 3. Credentials. Отсутствующий или протухший token — это
	// credential-ошибка без сетевого вызова; идёт обычным retry-путём.
	token, err := p.creds.Get(ctx, account.ID)
	if err != nil {
		return p.recordFailure(ctx, job, target, account.Platform,
			fmt.Sprintf("credentials for account %s: %s", account.ID, err))
	}
	if !token.Valid() {
		return p.recordFailure(ctx, job, target, account.Platform,
			fmt.Sprintf("token expired for account %s", account.ID))
	}

	// 4. Publish-вызов с дедлайном.
	req := &publish.Request{
		Platform:    account.Platform,
		AccountID:   account.ID,
		Credentials: token,
		Content:     publish.MergeContent(post, target),
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	started := time.Now()
	result, pubErr := p.publisher.Publish(publishCtx, req)
	duration := time.Since(started)
	cancel()

	telemetry.PublishDuration.WithLabelValues(account.Platform).Observe(duration.Seconds())

	// 5. Результат.
	if pubErr == nil && result != nil && result.Success {
		return p.completeJob(ctx, job, target, account.Platform, result, duration)
	}

	errMsg := publishErrorMessage(result, pubErr)
	return p.recordFailure(ctx, job, target, account.Platform, errMsg)
}

// loadJobData загружает связанные с job сущности.
func (p *Processor) loadJobData(ctx context.Context, job *domain.QueueJob) (*domain.PostTarget, *domain.Post, *domain.SocialAccount, error) {
	target, err := p.targets.GetByID(ctx, job.PostTargetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: target %s", ErrJobDataMissing, job.PostTargetID)
		}
		return nil, nil, nil, fmt.Errorf("get target: %w", err)
	}

	post, err := p.posts.GetByID(ctx, job.PostID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return target, nil, nil, fmt.Errorf("%w: post %s", ErrJobDataMissing, job.PostID)
		}
		return target, nil, nil, fmt.Errorf("get post: %w", err)
	}

	account, err := p.accounts.GetByID(ctx, target.SocialAccountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return target, post, nil, fmt.Errorf("%w: account %s", ErrJobDataMissing, target.SocialAccountID)
		}
		return target, post, nil, fmt.Errorf("get account: %w", err)
	}

	return target, post, account, nil
}

// completeJob фиксирует успешную публикацию в job и target.
func (p *Processor) completeJob(ctx context.Context, job *domain.QueueJob, target *domain.PostTarget, platform string, result *publish.Result, duration time.Duration) error {
	job.MarkCompleted(duration.Milliseconds(), result.RawResponse)
	if err := p.jobs.Update(ctx, job); err != nil {
		// Job остался running; по истечении аренды его вернёт reaper.
		return fmt.Errorf("update job to completed: %w", err)
	}

	target.MarkPublished(result.PostID, result.URL)
	if err := p.targets.Update(ctx, target); err != nil {
		p.logger.Error("failed to update target to published",
			"job_id", job.ID,
			"target_id", target.ID,
			"error", err,
		)
	}

	telemetry.JobsCompleted.WithLabelValues(platform).Inc()

	p.logger.Info("job completed",
		"job_id", job.ID,
		"target_id", target.ID,
		"platform", platform,
		"published_post_id", result.PostID,
		"duration_ms", job.ExecutionDurationMs,
	)

	event := audit.NewEvent(audit.EventJobCompleted)
	fillEvent(&event, job, platform)
	event.DurationMs = job.ExecutionDurationMs
	p.events.Emit(ctx, event)

	return nil
}

// recordFailure фиксирует неудачную попытку: retrying либо failed
// по бюджету попыток. В fail-fast режиме permanent-ошибки сразу
// переводят job в failed.
func (p *Processor) recordFailure(ctx context.Context, job *domain.QueueJob, target *domain.PostTarget, platform, errMsg string) error {
	now := time.Now()

	if p.failFast && domain.Classify(errMsg).Kind() == domain.ErrorKindPermanent {
		return p.failJob(ctx, job, target, platform, errMsg)
	}

	willRetry := job.RecordFailure(now, errMsg)
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update job after failure: %w", err)
	}

	if target != nil {
		p.mirrorFailure(ctx, job, target, errMsg)
	}

	if willRetry {
		telemetry.JobRetries.WithLabelValues(platform).Inc()

		p.logger.Warn("job attempt failed, will retry",
			"job_id", job.ID,
			"attempt", job.AttemptNumber,
			"max_attempts", job.MaxAttempts,
			"next_retry_at", job.NextRetryAt,
			"error", errMsg,
		)

		event := audit.NewEvent(audit.EventJobRetrying)
		fillEvent(&event, job, platform)
		event.Error = errMsg
		p.events.Emit(ctx, event)
		return nil
	}

	telemetry.JobsFailed.WithLabelValues(platform, string(job.ErrorCode)).Inc()

	p.logger.Error("job failed permanently",
		"job_id", job.ID,
		"attempt", job.AttemptNumber,
		"error_code", job.ErrorCode,
		"error", errMsg,
	)

	event := audit.NewEvent(audit.EventJobFailed)
	fillEvent(&event, job, platform)
	event.ErrorCode = string(job.ErrorCode)
	event.Error = errMsg
	p.events.Emit(ctx, event)
	return nil
}

// failJob переводит job в failed, минуя оставшиеся попытки.
func (p *Processor) failJob(ctx context.Context, job *domain.QueueJob, target *domain.PostTarget, platform, errMsg string) error {
	job.MarkFailed(time.Now(), errMsg)
	if err := p.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("update job to failed: %w", err)
	}

	if target != nil {
		p.mirrorFailure(ctx, job, target, errMsg)
	}

	telemetry.JobsFailed.WithLabelValues(platform, string(job.ErrorCode)).Inc()

	p.logger.Error("job failed without retry",
		"job_id", job.ID,
		"error_code", job.ErrorCode,
		"error", errMsg,
	)

	event := audit.NewEvent(audit.EventJobFailed)
	fillEvent(&event, job, platform)
	event.ErrorCode = string(job.ErrorCode)
	event.Error = errMsg
	p.events.Emit(ctx, event)
	return nil
}

// mirrorFailure зеркалирует неудачу job в target. Пока job в retrying,
// target остаётся publishing; терминальный failed переводит и target.
func (p *Processor) mirrorFailure(ctx context.Context, job *domain.QueueJob, target *domain.PostTarget, errMsg string) {
	target.RetryCount = job.AttemptNumber
	target.PublishError = errMsg
	if job.Status == domain.JobStatusFailed {
		target.MarkFailed(errMsg)
	}

	if err := p.targets.Update(ctx, target); err != nil {
		p.logger.Error("failed to mirror failure to target",
			"job_id", job.ID,
			"target_id", target.ID,
			"error", err,
		)
	}
}

// publishErrorMessage извлекает текст ошибки из результата publish-вызова.
func publishErrorMessage(result *publish.Result, pubErr error) string {
	switch {
	case pubErr != nil:
		return pubErr.Error()
	case result == nil:
		return "publisher returned no result"
	case result.Error != "":
		return result.Error
	default:
		return "publish failed without error message"
	}
}

// fillEvent заполняет общие поля audit-события из job.
func fillEvent(event *audit.Event, job *domain.QueueJob, platform string) {
	event.JobID = job.ID
	event.TargetID = job.PostTargetID
	event.WorkspaceID = job.WorkspaceID
	event.Platform = platform
	event.Attempt = job.AttemptNumber
}
