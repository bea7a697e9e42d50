package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Publika/internal/domain"
)

// TargetRepo — репозиторий для работы с post targets.
type TargetRepo struct {
	pool *pgxpool.Pool
}

// NewTargetRepo создаёт новый TargetRepo.
func NewTargetRepo(pool *pgxpool.Pool) *TargetRepo {
	return &TargetRepo{pool: pool}
}

const targetColumns = `id, post_id, social_account_id, workspace_id, content_override,
       media_override, settings_override, publish_status, published_at, published_post_id,
       published_post_url, publish_error, retry_count, created_at, updated_at`

// GetByID возвращает target по ID.
func (r *TargetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PostTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM post_targets WHERE id = $1`
	target, err := scanTargetRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return target, err
}

// ListPendingByPost возвращает pending targets для post.
// Именно для них scheduler создаёт queue jobs.
func (r *TargetRepo) ListPendingByPost(ctx context.Context, postID uuid.UUID) ([]domain.PostTarget, error) {
	query := `
		SELECT ` + targetColumns + `
		FROM post_targets
		WHERE post_id = $1 AND publish_status = 'pending'
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("list pending targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.PostTarget
	for rows.Next() {
		target, err := scanTargetRow(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, *target)
	}
	return targets, rows.Err()
}

// Update сохраняет publish-результат target.
func (r *TargetRepo) Update(ctx context.Context, target *domain.PostTarget) error {
	query := `
		UPDATE post_targets
		SET publish_status = $2, published_at = $3, published_post_id = $4,
		    published_post_url = $5, publish_error = $6, retry_count = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		target.ID,
		target.PublishStatus,
		target.PublishedAt,
		nullString(target.PublishedPostID),
		nullString(target.PublishedPostURL),
		nullString(target.PublishError),
		target.RetryCount,
		target.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkQueued переводит pending target в queued.
// Условный UPDATE: терминальные и уже queued targets не трогаются.
func (r *TargetRepo) MarkQueued(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE post_targets
		SET publish_status = 'queued', updated_at = NOW()
		WHERE id = $1 AND publish_status = 'pending'
	`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark target queued: %w", err)
	}
	return nil
}

// --- Helpers ---

func scanTargetRow(row pgx.Row) (*domain.PostTarget, error) {
	var target domain.PostTarget
	var contentOverride, publishedPostID, publishedPostURL, publishError *string
	var mediaJSON, settingsJSON []byte

	err := row.Scan(
		&target.ID,
		&target.PostID,
		&target.SocialAccountID,
		&target.WorkspaceID,
		&contentOverride,
		&mediaJSON,
		&settingsJSON,
		&target.PublishStatus,
		&target.PublishedAt,
		&publishedPostID,
		&publishedPostURL,
		&publishError,
		&target.RetryCount,
		&target.CreatedAt,
		&target.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan target: %w", err)
	}

	if contentOverride != nil {
		target.ContentOverride = *contentOverride
	}
	if publishedPostID != nil {
		target.PublishedPostID = *publishedPostID
	}
	if publishedPostURL != nil {
		target.PublishedPostURL = *publishedPostURL
	}
	if publishError != nil {
		target.PublishError = *publishError
	}
	if mediaJSON != nil {
		if err := json.Unmarshal(mediaJSON, &target.MediaOverride); err != nil {
			return nil, fmt.Errorf("unmarshal media override: %w", err)
		}
	}
	if settingsJSON != nil {
		if err := json.Unmarshal(settingsJSON, &target.SettingsOverride); err != nil {
			return nil, fmt.Errorf("unmarshal settings override: %w", err)
		}
	}
	return &target, nil
}
