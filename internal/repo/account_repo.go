package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Publika/internal/domain"
)

// AccountRepo — read-only репозиторий подключённых соцаккаунтов.
// Запись и refresh токенов — зона ответственности OAuth-подсистемы.
type AccountRepo struct {
	pool *pgxpool.Pool
}

// NewAccountRepo создаёт новый AccountRepo.
func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// GetByID возвращает аккаунт по ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SocialAccount, error) {
	query := `
		SELECT id, workspace_id, user_id, platform, access_token, refresh_token, token_expires_at
		FROM social_accounts
		WHERE id = $1
	`
	var acc domain.SocialAccount
	var accessToken, refreshToken *string

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.WorkspaceID,
		&acc.UserID,
		&acc.Platform,
		&accessToken,
		&refreshToken,
		&acc.TokenExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if accessToken != nil {
		acc.AccessToken = *accessToken
	}
	if refreshToken != nil {
		acc.RefreshToken = *refreshToken
	}
	return &acc, nil
}
