package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Publika/internal/domain"
)

// ScheduleRepo — репозиторий для работы со schedules.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

const scheduleColumns = `id, workspace_id, post_id, type, scheduled_at, recurrence_pattern,
       queue_name, active, priority, last_run_at, next_run_at, created_at, updated_at`

// Create создаёт новый schedule.
func (r *ScheduleRepo) Create(ctx context.Context, sched *domain.Schedule) error {
	query := `
		INSERT INTO schedules (id, workspace_id, post_id, type, scheduled_at, recurrence_pattern,
		                       queue_name, active, priority, last_run_at, next_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Exec(ctx, query,
		sched.ID,
		sched.WorkspaceID,
		sched.PostID,
		sched.Type,
		sched.ScheduledAt,
		nullString(sched.RecurrencePattern),
		nullString(sched.QueueName),
		sched.Active,
		sched.Priority,
		sched.LastRunAt,
		sched.NextRunAt,
		sched.CreatedAt,
		sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetByID возвращает schedule по ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	return scanSchedule(r.pool.QueryRow(ctx, query, id))
}

// ListDue возвращает активные schedules, готовые к оценке:
// next_run_at отсутствует или уже наступил. Порядок — priority по
// убыванию, затем created_at по возрастанию (fairness tie-break).
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE active = TRUE
		  AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY priority DESC, created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// List возвращает schedules workspace'а (для ctl).
// workspaceID == uuid.Nil — без фильтра.
func (r *ScheduleRepo) List(ctx context.Context, workspaceID uuid.UUID, limit int) ([]domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE ($1::uuid IS NULL OR workspace_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, nullUUID(workspaceID), limit)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	return collectSchedules(rows)
}

// Update обновляет изменяемые scheduler'ом поля schedule.
func (r *ScheduleRepo) Update(ctx context.Context, sched *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET active = $2, priority = $3, last_run_at = $4, next_run_at = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		sched.ID,
		sched.Active,
		sched.Priority,
		sched.LastRunAt,
		sched.NextRunAt,
		sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func collectSchedules(rows pgx.Rows) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	for rows.Next() {
		sched, err := scanScheduleRow(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	sched, err := scanScheduleRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sched, err
}

func scanScheduleRow(row pgx.Row) (*domain.Schedule, error) {
	var sched domain.Schedule
	var pattern, queueName *string

	err := row.Scan(
		&sched.ID,
		&sched.WorkspaceID,
		&sched.PostID,
		&sched.Type,
		&sched.ScheduledAt,
		&pattern,
		&queueName,
		&sched.Active,
		&sched.Priority,
		&sched.LastRunAt,
		&sched.NextRunAt,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	if pattern != nil {
		sched.RecurrencePattern = *pattern
	}
	if queueName != nil {
		sched.QueueName = *queueName
	}
	return &sched, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для нулевого UUID.
func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
