package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Publika/internal/domain"
	"github.com/shaiso/Publika/internal/repo"
	"github.com/shaiso/Publika/internal/telemetry"
)

// Default configuration values.
const (
	defaultBatchSize       = 100
	defaultEvergreenPacing = 5 * time.Minute
)

// ScheduleStore — операции над schedules, нужные scheduler'у.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, sched *domain.Schedule) error
}

// PostStore — операции над posts, нужные scheduler'у.
type PostStore interface {
	PopEvergreen(ctx context.Context, queueName string, now time.Time) (*domain.Post, error)
}

// TargetStore — операции над post targets, нужные scheduler'у.
type TargetStore interface {
	ListPendingByPost(ctx context.Context, postID uuid.UUID) ([]domain.PostTarget, error)
	MarkQueued(ctx context.Context, id uuid.UUID) error
}

// JobStore — создание queue jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.QueueJob) error
}

// Scheduler превращает due schedules в queue jobs.
//
// Ровно один job на (schedule, target, occurrence): дубликаты
// отсекаются уникальным индексом в store и трактуются как
// «уже запланировано». Ошибка одного schedule не блокирует остальные.
type Scheduler struct {
	schedules ScheduleStore
	posts     PostStore
	targets   TargetStore
	jobs      JobStore

	batchSize       int
	evergreenPacing time.Duration
	maxAttempts     int

	logger *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules ScheduleStore
	Posts     PostStore
	Targets   TargetStore
	Jobs      JobStore

	// BatchSize — количество schedules за один проход (default: 100).
	BatchSize int

	// EvergreenPacing — отступ публикации от момента выборки из
	// evergreen очереди (default: 5m).
	EvergreenPacing time.Duration

	// MaxAttempts — лимит попыток для создаваемых jobs (default: 3).
	MaxAttempts int

	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	pacing := cfg.EvergreenPacing
	if pacing <= 0 {
		pacing = defaultEvergreenPacing
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules:       cfg.Schedules,
		posts:           cfg.Posts,
		targets:         cfg.Targets,
		jobs:            cfg.Jobs,
		batchSize:       batchSize,
		evergreenPacing: pacing,
		maxAttempts:     maxAttempts,
		logger:          logger,
	}
}

// ProcessSchedules выполняет один проход планировщика.
//
// 1. Находит due schedules (active, next_run_at отсутствует или наступил)
// 2. Для каждого создаёт queue jobs согласно типу
// 3. Штампует last_run_at (и next_run_at для recurring)
//
// Ошибки одного schedule логируются и не блокируют обработку остальных.
func (s *Scheduler) ProcessSchedules(ctx context.Context) error {
	now := time.Now().UTC()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		n, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"type", sched.Type,
				"error", err,
			)
			telemetry.ScheduleErrors.Inc()
			// Продолжаем обработку остальных
			continue
		}

		processed++
		created += n
	}

	s.logger.Info("schedule pass completed",
		"due", len(schedules),
		"processed", processed,
		"jobs_created", created,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает количество созданных jobs.
//
// Штамп last_run_at ставится независимо от исхода dispatch'а, чтобы
// некорректный schedule не застревал в начале каждой выборки.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (int, error) {
	var created int
	var dispatchErr error

	switch sched.Type {
	case domain.ScheduleTypeSingle:
		created, dispatchErr = s.dispatchSingle(ctx, sched, now)
	case domain.ScheduleTypeRecurring:
		created, dispatchErr = s.dispatchRecurring(ctx, sched, now)
	case domain.ScheduleTypeEvergreen:
		created, dispatchErr = s.dispatchEvergreen(ctx, sched, now)
	default:
		dispatchErr = fmt.Errorf("unknown schedule type %q", sched.Type)
	}

	var nextRun *time.Time
	if sched.Type == domain.ScheduleTypeRecurring && sched.RecurrencePattern != "" {
		if next, err := NextOccurrence(sched.RecurrencePattern, now); err == nil {
			nextRun = &next
		} else {
			s.logger.Warn("failed to compute next occurrence",
				"schedule_id", sched.ID,
				"pattern", sched.RecurrencePattern,
				"error", err,
			)
		}
	}

	sched.StampRun(now, nextRun)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return created, fmt.Errorf("stamp schedule: %w", err)
	}

	if dispatchErr != nil {
		return created, dispatchErr
	}

	if created > 0 {
		telemetry.JobsScheduled.WithLabelValues(string(sched.Type)).Add(float64(created))
	}
	return created, nil
}

// dispatchSingle создаёт по job на каждый pending target, когда
// scheduled_at наступил.
func (s *Scheduler) dispatchSingle(ctx context.Context, sched *domain.Schedule, now time.Time) (int, error) {
	if err := sched.Validate(); err != nil {
		return 0, err
	}
	if sched.PostID == nil {
		return 0, fmt.Errorf("single schedule %s has no post", sched.ID)
	}
	if sched.ScheduledAt.After(now) {
		// Ещё не время
		return 0, nil
	}

	return s.createJobsForPost(ctx, sched, *sched.PostID, *sched.ScheduledAt)
}

// dispatchRecurring вычисляет ближайшее срабатывание от последнего
// запуска и создаёт jobs, если оно уже наступило.
func (s *Scheduler) dispatchRecurring(ctx context.Context, sched *domain.Schedule, now time.Time) (int, error) {
	if err := sched.Validate(); err != nil {
		return 0, err
	}
	if sched.PostID == nil {
		return 0, fmt.Errorf("recurring schedule %s has no post", sched.ID)
	}

	// Без предыдущего запуска публикуем сразу
	occurrence := now
	if sched.LastRunAt != nil {
		next, err := NextOccurrence(sched.RecurrencePattern, *sched.LastRunAt)
		if err != nil {
			return 0, err
		}
		occurrence = next
	}

	if occurrence.After(now) {
		// Ещё не время
		return 0, nil
	}

	return s.createJobsForPost(ctx, sched, *sched.PostID, occurrence)
}

// dispatchEvergreen забирает один post из именованной очереди и
// планирует его публикацию на now + pacing.
func (s *Scheduler) dispatchEvergreen(ctx context.Context, sched *domain.Schedule, now time.Time) (int, error) {
	if err := sched.Validate(); err != nil {
		return 0, err
	}

	post, err := s.posts.PopEvergreen(ctx, sched.QueueName, now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Очередь пуста — не ошибка
			return 0, nil
		}
		return 0, fmt.Errorf("pop evergreen queue %q: %w", sched.QueueName, err)
	}

	s.logger.Info("picked evergreen post",
		"schedule_id", sched.ID,
		"queue", sched.QueueName,
		"post_id", post.ID,
	)

	return s.createJobsForPost(ctx, sched, post.ID, now.Add(s.evergreenPacing))
}

// createJobsForPost создаёт по job на каждый pending target поста.
//
// Конфликт уникальности означает «уже запланировано» и молча
// пропускается — повторный проход по тому же schedule идемпотентен.
func (s *Scheduler) createJobsForPost(ctx context.Context, sched *domain.Schedule, postID uuid.UUID, at time.Time) (int, error) {
	targets, err := s.targets.ListPendingByPost(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("list pending targets: %w", err)
	}

	now := time.Now().UTC()
	var created int
	for i := range targets {
		target := &targets[i]

		job := &domain.QueueJob{
			ID:           uuid.New(),
			WorkspaceID:  sched.WorkspaceID,
			PostID:       postID,
			PostTargetID: target.ID,
			ScheduleID:   sched.ID,
			ScheduledAt:  at,
			Status:       domain.JobStatusPending,
			MaxAttempts:  s.maxAttempts,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.jobs.Create(ctx, job); err != nil {
			if errors.Is(err, repo.ErrAlreadyExists) {
				s.logger.Debug("job already scheduled",
					"schedule_id", sched.ID,
					"target_id", target.ID,
				)
				continue
			}
			return created, fmt.Errorf("create job for target %s: %w", target.ID, err)
		}

		if err := s.targets.MarkQueued(ctx, target.ID); err != nil {
			s.logger.Warn("failed to mark target queued",
				"target_id", target.ID,
				"error", err,
			)
		}

		s.logger.Info("created queue job",
			"job_id", job.ID,
			"schedule_id", sched.ID,
			"post_id", postID,
			"target_id", target.ID,
			"scheduled_at", at,
		)
		created++
	}

	return created, nil
}
