package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestJob() *QueueJob {
	return &QueueJob{
		ID:          uuid.New(),
		Status:      JobStatusPending,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Полный жизненный цикл всегда-падающего job:
// pending → retrying(1, ~60s) → retrying(2, ~120s) → failed(3).
func TestQueueJob_RecordFailure_ExhaustsBudget(t *testing.T) {
	job := newTestJob()
	now := time.Now()

	// Первая неудача
	if !job.RecordFailure(now, "dial tcp: connection refused") {
		t.Fatal("first failure should schedule a retry")
	}
	if job.Status != JobStatusRetrying {
		t.Errorf("status = %s, want retrying", job.Status)
	}
	if job.AttemptNumber != 1 {
		t.Errorf("attempt = %d, want 1", job.AttemptNumber)
	}
	if got := job.NextRetryAt.Sub(now); got != time.Minute {
		t.Errorf("first retry delay = %v, want 1m", got)
	}

	// Вторая неудача
	if !job.RecordFailure(now, "dial tcp: connection refused") {
		t.Fatal("second failure should schedule a retry")
	}
	if job.AttemptNumber != 2 {
		t.Errorf("attempt = %d, want 2", job.AttemptNumber)
	}
	if got := job.NextRetryAt.Sub(now); got != 2*time.Minute {
		t.Errorf("second retry delay = %v, want 2m", got)
	}

	// Третья неудача — бюджет исчерпан
	if job.RecordFailure(now, "dial tcp: connection refused") {
		t.Fatal("third failure should not schedule a retry")
	}
	if job.Status != JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if job.AttemptNumber != 3 {
		t.Errorf("attempt = %d, want 3", job.AttemptNumber)
	}
	if job.ErrorCode != ErrorCodeNetwork {
		t.Errorf("error code = %s, want NETWORK_ERROR", job.ErrorCode)
	}
	if job.NextRetryAt != nil {
		t.Error("failed job should not have next_retry_at")
	}
	if job.FinishedAt == nil {
		t.Error("failed job should have finished_at")
	}
}

func TestQueueJob_MarkCompleted(t *testing.T) {
	job := newTestJob()
	now := time.Now()
	job.MarkRunning(now, now.Add(5*time.Minute))

	job.MarkCompleted(1234, `{"id":"p1"}`)

	if job.Status != JobStatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if job.ExecutionDurationMs != 1234 {
		t.Errorf("duration = %d, want 1234", job.ExecutionDurationMs)
	}
	if job.LeaseExpiresAt != nil {
		t.Error("completed job should not hold a lease")
	}
	if !job.IsFinished() {
		t.Error("completed job should be terminal")
	}
}

func TestQueueJob_MarkFailed_FailFast(t *testing.T) {
	job := newTestJob()

	job.MarkFailed(time.Now(), "401 Unauthorized")

	if job.Status != JobStatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if job.ErrorCode != ErrorCodeAuth {
		t.Errorf("error code = %s, want AUTH_ERROR", job.ErrorCode)
	}
	if job.AttemptNumber != 1 {
		t.Errorf("attempt = %d, want 1", job.AttemptNumber)
	}
}

func TestQueueJob_BackoffDelay(t *testing.T) {
	job := newTestJob()

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute, 8 * time.Minute}
	for attempt, expected := range want {
		job.AttemptNumber = attempt
		if got := job.BackoffDelay(); got != expected {
			t.Errorf("BackoffDelay(attempt=%d) = %v, want %v", attempt, got, expected)
		}
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCanceled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	nonTerminal := []JobStatus{JobStatusPending, JobStatusQueued, JobStatusRunning, JobStatusRetrying}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestSchedule_Validate(t *testing.T) {
	at := time.Now()
	tests := []struct {
		name    string
		sched   Schedule
		wantErr bool
	}{
		{"single with scheduled_at", Schedule{Type: ScheduleTypeSingle, ScheduledAt: &at}, false},
		{"single without scheduled_at", Schedule{Type: ScheduleTypeSingle}, true},
		{"recurring with pattern", Schedule{Type: ScheduleTypeRecurring, RecurrencePattern: "@daily"}, false},
		{"recurring without pattern", Schedule{Type: ScheduleTypeRecurring}, true},
		{"evergreen with queue", Schedule{Type: ScheduleTypeEvergreen, QueueName: "tips"}, false},
		{"evergreen without queue", Schedule{Type: ScheduleTypeEvergreen}, true},
		{"unknown type", Schedule{Type: "weekly"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sched.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchedule_IsDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		sched Schedule
		want  bool
	}{
		{"inactive never due", Schedule{Active: false}, false},
		{"no next_run_at is due", Schedule{Active: true}, true},
		{"past next_run_at is due", Schedule{Active: true, NextRunAt: &past}, true},
		{"future next_run_at not due", Schedule{Active: true, NextRunAt: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sched.IsDue(now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}
