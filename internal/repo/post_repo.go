package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Publika/internal/domain"
)

// PostRepo — репозиторий для работы с posts.
type PostRepo struct {
	pool *pgxpool.Pool
}

// NewPostRepo создаёт новый PostRepo.
func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

const postColumns = `id, workspace_id, content, media_urls, settings, status, queue_name, created_at`

// GetByID возвращает post по ID.
func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPostRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

// PopEvergreen атомарно забирает из именованной очереди самый старый
// draft post и помечает его queued, чтобы следующий вызов его не выбрал.
// Пустая очередь — ErrNotFound.
func (r *PostRepo) PopEvergreen(ctx context.Context, queueName string, now time.Time) (*domain.Post, error) {
	query := `
		WITH next AS (
			SELECT id FROM posts
			WHERE queue_name = $1 AND status = 'draft'
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE posts p
		SET status = 'queued'
		FROM next
		WHERE p.id = next.id
		RETURNING p.id, p.workspace_id, p.content, p.media_urls, p.settings, p.status, p.queue_name, p.created_at
	`
	post, err := scanPostRow(r.pool.QueryRow(ctx, query, queueName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pop evergreen post: %w", err)
	}
	return post, nil
}

// --- Helpers ---

func scanPostRow(row pgx.Row) (*domain.Post, error) {
	var post domain.Post
	var queueName *string
	var mediaJSON, settingsJSON []byte

	err := row.Scan(
		&post.ID,
		&post.WorkspaceID,
		&post.Content,
		&mediaJSON,
		&settingsJSON,
		&post.Status,
		&queueName,
		&post.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}

	if queueName != nil {
		post.QueueName = *queueName
	}
	if mediaJSON != nil {
		if err := json.Unmarshal(mediaJSON, &post.MediaURLs); err != nil {
			return nil, fmt.Errorf("unmarshal media urls: %w", err)
		}
	}
	if settingsJSON != nil {
		if err := json.Unmarshal(settingsJSON, &post.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	return &post, nil
}
