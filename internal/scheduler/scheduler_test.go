package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Publika/internal/domain"
	"github.com/shaiso/Publika/internal/repo"
)

// --- In-memory фейки store-интерфейсов ---

type fakeScheduleStore struct {
	due     []domain.Schedule
	updated []domain.Schedule
}

func (f *fakeScheduleStore) ListDue(_ context.Context, _ time.Time, limit int) ([]domain.Schedule, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeScheduleStore) Update(_ context.Context, sched *domain.Schedule) error {
	f.updated = append(f.updated, *sched)
	return nil
}

type fakePostStore struct {
	queues map[string][]domain.Post
}

func (f *fakePostStore) PopEvergreen(_ context.Context, queueName string, _ time.Time) (*domain.Post, error) {
	queue := f.queues[queueName]
	if len(queue) == 0 {
		return nil, repo.ErrNotFound
	}
	post := queue[0]
	f.queues[queueName] = queue[1:]
	return &post, nil
}

type fakeTargetStore struct {
	byPost map[uuid.UUID][]domain.PostTarget
	queued []uuid.UUID
}

func (f *fakeTargetStore) ListPendingByPost(_ context.Context, postID uuid.UUID) ([]domain.PostTarget, error) {
	return f.byPost[postID], nil
}

func (f *fakeTargetStore) MarkQueued(_ context.Context, id uuid.UUID) error {
	f.queued = append(f.queued, id)
	return nil
}

type jobKey struct {
	scheduleID uuid.UUID
	targetID   uuid.UUID
}

type fakeJobStore struct {
	jobs   []domain.QueueJob
	active map[jobKey]bool
}

// Create эмулирует частичный уникальный индекс: второй нетерминальный
// job на пару (schedule, target) — конфликт.
func (f *fakeJobStore) Create(_ context.Context, job *domain.QueueJob) error {
	if f.active == nil {
		f.active = make(map[jobKey]bool)
	}
	key := jobKey{job.ScheduleID, job.PostTargetID}
	if f.active[key] {
		return repo.ErrAlreadyExists
	}
	f.active[key] = true
	f.jobs = append(f.jobs, *job)
	return nil
}

// --- Helpers ---

func newTestScheduler(schedules ScheduleStore, posts *fakePostStore, targets *fakeTargetStore, jobs *fakeJobStore) *Scheduler {
	if posts == nil {
		posts = &fakePostStore{queues: map[string][]domain.Post{}}
	}
	return New(Config{
		Schedules: schedules,
		Posts:     posts,
		Targets:   targets,
		Jobs:      jobs,
	})
}

func pendingTargets(postID uuid.UUID, n int) []domain.PostTarget {
	targets := make([]domain.PostTarget, n)
	for i := range targets {
		targets[i] = domain.PostTarget{
			ID:              uuid.New(),
			PostID:          postID,
			SocialAccountID: uuid.New(),
			PublishStatus:   domain.PublishStatusPending,
		}
	}
	return targets
}

// --- Tests ---

func TestProcessSchedulesSingleDue(t *testing.T) {
	postID := uuid.New()
	scheduledAt := time.Now().UTC().Add(-time.Minute)

	schedules := &fakeScheduleStore{due: []domain.Schedule{{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		PostID:      &postID,
		Type:        domain.ScheduleTypeSingle,
		ScheduledAt: &scheduledAt,
		Active:      true,
	}}}
	targets := &fakeTargetStore{byPost: map[uuid.UUID][]domain.PostTarget{
		postID: pendingTargets(postID, 2),
	}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, nil, targets, jobs)
	if err := s.ProcessSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessSchedules: %v", err)
	}

	if len(jobs.jobs) != 2 {
		t.Fatalf("created %d jobs, want 2", len(jobs.jobs))
	}
	for _, job := range jobs.jobs {
		if job.Status != domain.JobStatusPending {
			t.Errorf("job status = %s, want pending", job.Status)
		}
		if !job.ScheduledAt.Equal(scheduledAt) {
			t.Errorf("job scheduled_at = %v, want %v", job.ScheduledAt, scheduledAt)
		}
		if job.MaxAttempts != domain.DefaultMaxAttempts {
			t.Errorf("job max_attempts = %d, want %d", job.MaxAttempts, domain.DefaultMaxAttempts)
		}
	}
	if len(targets.queued) != 2 {
		t.Errorf("marked %d targets queued, want 2", len(targets.queued))
	}

	// Schedule проштампован
	if len(schedules.updated) != 1 {
		t.Fatalf("updated %d schedules, want 1", len(schedules.updated))
	}
	if schedules.updated[0].LastRunAt == nil {
		t.Error("last_run_at not stamped")
	}
}

func TestProcessSchedulesSingleNotYetDue(t *testing.T) {
	postID := uuid.New()
	scheduledAt := time.Now().UTC().Add(time.Hour)

	schedules := &fakeScheduleStore{due: []domain.Schedule{{
		ID:          uuid.New(),
		PostID:      &postID,
		Type:        domain.ScheduleTypeSingle,
		ScheduledAt: &scheduledAt,
		Active:      true,
	}}}
	targets := &fakeTargetStore{byPost: map[uuid.UUID][]domain.PostTarget{
		postID: pendingTargets(postID, 1),
	}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, nil, targets, jobs)
	if err := s.ProcessSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessSchedules: %v", err)
	}

	if len(jobs.jobs) != 0 {
		t.Errorf("created %d jobs for future schedule, want 0", len(jobs.jobs))
	}
}

// Повторный проход по тому же schedule не создаёт дубликатов: конфликт
// уникальности трактуется как «уже запланировано».
func TestProcessSchedulesIdempotent(t *testing.T) {
	postID := uuid.New()
	scheduledAt := time.Now().UTC().Add(-time.Minute)

	sched := domain.Schedule{
		ID:          uuid.New(),
		PostID:      &postID,
		Type:        domain.ScheduleTypeSingle,
		ScheduledAt: &scheduledAt,
		Active:      true,
	}
	schedules := &fakeScheduleStore{due: []domain.Schedule{sched}}
	targets := &fakeTargetStore{byPost: map[uuid.UUID][]domain.PostTarget{
		postID: pendingTargets(postID, 1),
	}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, nil, targets, jobs)
	for i := 0; i < 3; i++ {
		if err := s.ProcessSchedules(context.Background()); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	if len(jobs.jobs) != 1 {
		t.Errorf("created %d jobs after 3 passes, want 1", len(jobs.jobs))
	}
}

func TestProcessSchedulesRecurring(t *testing.T) {
	postID := uuid.New()
	lastRun := time.Now().UTC().Add(-25 * time.Hour)

	schedules := &fakeScheduleStore{due: []domain.Schedule{{
		ID:                uuid.New(),
		PostID:            &postID,
		Type:              domain.ScheduleTypeRecurring,
		RecurrencePattern: "@daily",
		Active:            true,
		LastRunAt:         &lastRun,
	}}}
	targets := &fakeTargetStore{byPost: map[uuid.UUID][]domain.PostTarget{
		postID: pendingTargets(postID, 1),
	}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, nil, targets, jobs)
	if err := s.ProcessSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessSchedules: %v", err)
	}

	if len(jobs.jobs) != 1 {
		t.Fatalf("created %d jobs, want 1", len(jobs.jobs))
	}

	// Срабатывание — от последнего запуска, не от now
	occurrence := jobs.jobs[0].ScheduledAt
	if occurrence.After(time.Now().UTC()) {
		t.Errorf("occurrence %v should be in the past", occurrence)
	}
	if !occurrence.After(lastRun) {
		t.Errorf("occurrence %v should be after last run %v", occurrence, lastRun)
	}

	// next_run_at проштампован в будущее
	updated := schedules.updated[0]
	if updated.NextRunAt == nil {
		t.Fatal("next_run_at not stamped")
	}
	if !updated.NextRunAt.After(time.Now().UTC()) {
		t.Errorf("next_run_at %v should be in the future", updated.NextRunAt)
	}
}

func TestProcessSchedulesRecurringNotYetDue(t *testing.T) {
	postID := uuid.New()
	lastRun := time.Now().UTC().Add(-time.Hour)

	schedules := &fakeScheduleStore{due: []domain.Schedule{{
		ID:                uuid.New(),
		PostID:            &postID,
		Type:              domain.ScheduleTypeRecurring,
		RecurrencePattern: "@every 24h",
		Active:            true,
		LastRunAt:         &lastRun,
	}}}
	targets := &fakeTargetStore{byPost: map[uuid.UUID][]domain.PostTarget{
		postID: pendingTargets(postID, 1),
	}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, nil, targets, jobs)
	if err := s.ProcessSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessSchedules: %v", err)
	}

	if len(jobs.jobs) != 0 {
		t.Errorf("created %d jobs before next occurrence, want 0", len(jobs.jobs))
	}
}

func TestProcessSchedulesEvergreen(t *testing.T) {
	postID := uuid.New()

	schedules := &fakeScheduleStore{due: []domain.Schedule{{
		ID:        uuid.New(),
		Type:      domain.ScheduleTypeEvergreen,
		QueueName: "tips",
		Active:    true,
	}}}
	posts := &fakePostStore{queues: map[string][]domain.Post{
		"tips": {{ID: postID, QueueName: "tips", Status: domain.PostStatusDraft}},
	}}
	targets := &fakeTargetStore{byPost: map[uuid.UUID][]domain.PostTarget{
		postID: pendingTargets(postID, 1),
	}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, posts, targets, jobs)
	before := time.Now().UTC()
	if err := s.ProcessSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessSchedules: %v", err)
	}

	if len(jobs.jobs) != 1 {
		t.Fatalf("created %d jobs, want 1", len(jobs.jobs))
	}

	// Публикация отложена на pacing
	if jobs.jobs[0].ScheduledAt.Before(before.Add(defaultEvergreenPacing - time.Second)) {
		t.Errorf("evergreen job scheduled_at %v should be ~%v after pick",
			jobs.jobs[0].ScheduledAt, defaultEvergreenPacing)
	}

	// Очередь исчерпана
	if len(posts.queues["tips"]) != 0 {
		t.Errorf("queue should be drained, %d posts left", len(posts.queues["tips"]))
	}
}

func TestProcessSchedulesEvergreenEmptyQueue(t *testing.T) {
	schedules := &fakeScheduleStore{due: []domain.Schedule{{
		ID:        uuid.New(),
		Type:      domain.ScheduleTypeEvergreen,
		QueueName: "empty",
		Active:    true,
	}}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, nil, &fakeTargetStore{}, jobs)
	if err := s.ProcessSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessSchedules: %v", err)
	}

	if len(jobs.jobs) != 0 {
		t.Errorf("created %d jobs from empty queue, want 0", len(jobs.jobs))
	}

	// Schedule всё равно проштампован
	if len(schedules.updated) != 1 || schedules.updated[0].LastRunAt == nil {
		t.Error("empty evergreen pass should still stamp last_run_at")
	}
}

// Ошибка одного schedule не блокирует обработку остальных.
func TestProcessSchedulesContinuesOnError(t *testing.T) {
	postID := uuid.New()
	scheduledAt := time.Now().UTC().Add(-time.Minute)

	schedules := &fakeScheduleStore{due: []domain.Schedule{
		{
			ID:     uuid.New(),
			Type:   domain.ScheduleType("bogus"),
			Active: true,
		},
		{
			ID:          uuid.New(),
			PostID:      &postID,
			Type:        domain.ScheduleTypeSingle,
			ScheduledAt: &scheduledAt,
			Active:      true,
		},
	}}
	targets := &fakeTargetStore{byPost: map[uuid.UUID][]domain.PostTarget{
		postID: pendingTargets(postID, 1),
	}}
	jobs := &fakeJobStore{}

	s := newTestScheduler(schedules, nil, targets, jobs)
	if err := s.ProcessSchedules(context.Background()); err != nil {
		t.Fatalf("ProcessSchedules: %v", err)
	}

	if len(jobs.jobs) != 1 {
		t.Errorf("healthy schedule should still produce a job, got %d", len(jobs.jobs))
	}
}

func TestProcessSchedulesListError(t *testing.T) {
	s := newTestScheduler(&failingScheduleStore{}, nil, &fakeTargetStore{}, &fakeJobStore{})
	if err := s.ProcessSchedules(context.Background()); err == nil {
		t.Error("expected error when listing schedules fails")
	}
}

type failingScheduleStore struct{}

func (failingScheduleStore) ListDue(context.Context, time.Time, int) ([]domain.Schedule, error) {
	return nil, errors.New("db down")
}

func (failingScheduleStore) Update(context.Context, *domain.Schedule) error {
	return errors.New("db down")
}
