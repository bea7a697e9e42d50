// Package credentials отдаёт учётные данные для publish-вызовов.
//
// OAuth-обмен и refresh токенов живут во внешней подсистеме; движку
// нужен только действующий access token. Provider возвращает
// ErrNoCredentials для неподключённых аккаунтов — processor в этом
// случае фейлит попытку без сетевого вызова.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/shaiso/Publika/internal/domain"
	"github.com/shaiso/Publika/internal/repo"
)

// ErrNoCredentials — для аккаунта нет сохранённых учётных данных.
var ErrNoCredentials = errors.New("no credentials for account")

// Provider отдаёт токен для аккаунта.
//
// Возвращённый токен может быть просроченным — проверка срока
// (Token.Valid) остаётся на вызывающем, потому что решение
// «фейлить или нет» принимает processor.
type Provider interface {
	Get(ctx context.Context, accountID uuid.UUID) (*oauth2.Token, error)
}

// RepoProvider — Provider поверх таблицы social_accounts.
type RepoProvider struct {
	accounts *repo.AccountRepo
}

// NewRepoProvider создаёт RepoProvider.
func NewRepoProvider(accounts *repo.AccountRepo) *RepoProvider {
	return &RepoProvider{accounts: accounts}
}

// Get реализует Provider.
func (p *RepoProvider) Get(ctx context.Context, accountID uuid.UUID) (*oauth2.Token, error) {
	acc, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return tokenFromAccount(acc)
}

// tokenFromAccount собирает oauth2.Token из полей аккаунта.
func tokenFromAccount(acc *domain.SocialAccount) (*oauth2.Token, error) {
	if acc.AccessToken == "" {
		return nil, ErrNoCredentials
	}

	token := &oauth2.Token{
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
	}
	if acc.TokenExpiresAt != nil {
		token.Expiry = *acc.TokenExpiresAt
	}
	return token, nil
}

// StaticProvider — Provider с фиксированным набором токенов.
// Используется в тестах и локальной разработке.
type StaticProvider struct {
	tokens map[uuid.UUID]*oauth2.Token
}

// NewStaticProvider создаёт StaticProvider.
func NewStaticProvider(tokens map[uuid.UUID]*oauth2.Token) *StaticProvider {
	if tokens == nil {
		tokens = make(map[uuid.UUID]*oauth2.Token)
	}
	return &StaticProvider{tokens: tokens}
}

// Set добавляет токен для аккаунта.
func (p *StaticProvider) Set(accountID uuid.UUID, token *oauth2.Token) {
	p.tokens[accountID] = token
}

// Get реализует Provider.
func (p *StaticProvider) Get(_ context.Context, accountID uuid.UUID) (*oauth2.Token, error) {
	token, ok := p.tokens[accountID]
	if !ok {
		return nil, ErrNoCredentials
	}
	return token, nil
}

// ValidToken создаёт валидный токен с указанным сроком жизни.
// Хелпер для тестов.
func ValidToken(ttl time.Duration) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: "test-token",
		Expiry:      time.Now().Add(ttl),
	}
}
