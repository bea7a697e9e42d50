package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Publika/internal/domain"
)

// uniqueViolation — SQLSTATE конфликта уникальности в Postgres.
const uniqueViolation = "23505"

// JobRepo — репозиторий для работы с queue jobs.
//
// Claim — единственный механизм pickup'а: условный UPDATE с
// FOR UPDATE SKIP LOCKED гарантирует, что job достанется ровно
// одному диспетчеру, даже при нескольких worker-процессах.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, workspace_id, post_id, post_target_id, schedule_id, scheduled_at,
       status, attempt_number, max_attempts, next_retry_at, error_message, error_code,
       execution_duration_ms, provider_response, lease_expires_at, started_at, finished_at,
       created_at, updated_at`

// Create создаёт новый job.
//
// Частичный уникальный индекс на (schedule_id, post_target_id) для
// нетерминальных статусов отсекает дубликаты: конфликт уникальности
// возвращается как ErrAlreadyExists («уже запланировано»).
func (r *JobRepo) Create(ctx context.Context, job *domain.QueueJob) error {
	query := `
		INSERT INTO queue_jobs (id, workspace_id, post_id, post_target_id, schedule_id,
		                        scheduled_at, status, attempt_number, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.WorkspaceID,
		job.PostID,
		job.PostTargetID,
		job.ScheduleID,
		job.ScheduledAt,
		job.Status,
		job.AttemptNumber,
		job.MaxAttempts,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.QueueJob, error) {
	query := `SELECT ` + jobColumns + ` FROM queue_jobs WHERE id = $1`
	job, err := scanJobRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListDue возвращает pending jobs, чьё время пришло, исключая уже
// диспетчеризованные. Порядок — scheduled_at, затем created_at по
// возрастанию (best-effort FIFO по сроку).
//
// Список — только кандидаты на dispatch; право на выполнение даёт Claim.
func (r *JobRepo) ListDue(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]domain.QueueJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM queue_jobs
		WHERE status = 'pending'
		  AND scheduled_at <= $1
		  AND NOT (id = ANY($3))
		ORDER BY scheduled_at ASC, created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit, excludeIDs(exclude))
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListDueRetries возвращает retrying jobs с наступившим next_retry_at.
func (r *JobRepo) ListDueRetries(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]domain.QueueJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM queue_jobs
		WHERE status = 'retrying'
		  AND next_retry_at <= $1
		  AND NOT (id = ANY($3))
		ORDER BY next_retry_at ASC, created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit, excludeIDs(exclude))
	if err != nil {
		return nil, fmt.Errorf("list due retries: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListByStatus возвращает jobs в указанном статусе (для ctl).
func (r *JobRepo) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.QueueJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM queue_jobs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, nullString(string(status)), limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Claim атомарно забирает job в работу: pending/retrying → running
// с арендой до now+leaseTTL. Если job уже не claimable (забрал другой
// диспетчер, отменён, терминален) — ErrInvalidState.
func (r *JobRepo) Claim(ctx context.Context, id uuid.UUID, now time.Time, leaseTTL time.Duration) (*domain.QueueJob, error) {
	query := `
		WITH claimable AS (
			SELECT id FROM queue_jobs
			WHERE id = $1 AND status IN ('pending', 'retrying')
			FOR UPDATE SKIP LOCKED
		)
		UPDATE queue_jobs j
		SET status = 'running', started_at = $2, lease_expires_at = $3, updated_at = $2
		FROM claimable
		WHERE j.id = claimable.id
		RETURNING ` + prefixedJobColumns("j") + `
	`
	job, err := scanJobRow(r.pool.QueryRow(ctx, query, id, now, now.Add(leaseTTL)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// Update сохраняет результат перехода job.
func (r *JobRepo) Update(ctx context.Context, job *domain.QueueJob) error {
	query := `
		UPDATE queue_jobs
		SET status = $2, attempt_number = $3, next_retry_at = $4, error_message = $5,
		    error_code = $6, execution_duration_ms = $7, provider_response = $8,
		    lease_expires_at = $9, started_at = $10, finished_at = $11, updated_at = $12
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.AttemptNumber,
		job.NextRetryAt,
		nullString(job.ErrorMessage),
		nullString(string(job.ErrorCode)),
		job.ExecutionDurationMs,
		nullString(job.ProviderResponse),
		job.LeaseExpiresAt,
		job.StartedAt,
		job.FinishedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Cancel переводит job в canceled, только если он нетерминален.
func (r *JobRepo) Cancel(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE queue_jobs
		SET status = 'canceled', next_retry_at = NULL, lease_expires_at = NULL,
		    finished_at = $2, updated_at = $2
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'canceled')
	`
	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// ReapExpired возвращает в pending running jobs с истёкшей арендой
// (worker упал, не сняв job). Счётчик попыток сохраняется.
func (r *JobRepo) ReapExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE queue_jobs
		SET status = 'pending', lease_expires_at = NULL, updated_at = $1
		WHERE status = 'running' AND lease_expires_at IS NOT NULL AND lease_expires_at < $1
		RETURNING id
	`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("reap expired jobs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reaped id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasActive проверяет, существует ли нетерминальный job для пары
// (schedule, target). Используется evergreen-диспетчером как быстрая
// проверка до вставки.
func (r *JobRepo) HasActive(ctx context.Context, scheduleID, targetID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM queue_jobs
			WHERE schedule_id = $1 AND post_target_id = $2
			  AND status NOT IN ('completed', 'failed', 'canceled')
		)
	`, scheduleID, targetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active job: %w", err)
	}
	return exists, nil
}

// --- Helpers ---

func collectJobs(rows pgx.Rows) ([]domain.QueueJob, error) {
	var jobs []domain.QueueJob
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJobRow(row pgx.Row) (*domain.QueueJob, error) {
	var job domain.QueueJob
	var errMsg, errCode, providerResp *string
	var durationMs *int64

	err := row.Scan(
		&job.ID,
		&job.WorkspaceID,
		&job.PostID,
		&job.PostTargetID,
		&job.ScheduleID,
		&job.ScheduledAt,
		&job.Status,
		&job.AttemptNumber,
		&job.MaxAttempts,
		&job.NextRetryAt,
		&errMsg,
		&errCode,
		&durationMs,
		&providerResp,
		&job.LeaseExpiresAt,
		&job.StartedAt,
		&job.FinishedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	if errCode != nil {
		job.ErrorCode = domain.ErrorCode(*errCode)
	}
	if durationMs != nil {
		job.ExecutionDurationMs = *durationMs
	}
	if providerResp != nil {
		job.ProviderResponse = *providerResp
	}
	return &job, nil
}

// prefixedJobColumns добавляет алиас таблицы к списку колонок
// (для RETURNING в UPDATE ... FROM).
func prefixedJobColumns(alias string) string {
	return alias + `.id, ` + alias + `.workspace_id, ` + alias + `.post_id, ` + alias + `.post_target_id, ` +
		alias + `.schedule_id, ` + alias + `.scheduled_at, ` + alias + `.status, ` + alias + `.attempt_number, ` +
		alias + `.max_attempts, ` + alias + `.next_retry_at, ` + alias + `.error_message, ` + alias + `.error_code, ` +
		alias + `.execution_duration_ms, ` + alias + `.provider_response, ` + alias + `.lease_expires_at, ` +
		alias + `.started_at, ` + alias + `.finished_at, ` + alias + `.created_at, ` + alias + `.updated_at`
}

// excludeIDs нормализует список исключений: пустой слайс вместо nil,
// чтобы ANY($3) всегда получал массив.
func excludeIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
