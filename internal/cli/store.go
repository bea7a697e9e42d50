package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Publika/internal/repo"
)

// Store — подключение ctl к БД.
//
// ctl работает с теми же таблицами, что и worker, напрямую через
// repo-слой; отдельного API-сервера у движка нет.
type Store struct {
	pool *pgxpool.Pool

	Schedules *repo.ScheduleRepo
	Jobs      *repo.JobRepo
}

// OpenStore открывает подключение к БД по dsn (DB_URL или default).
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := repo.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &Store{
		pool:      pool,
		Schedules: repo.NewScheduleRepo(pool),
		Jobs:      repo.NewJobRepo(pool),
	}, nil
}

// Close закрывает подключение.
func (s *Store) Close() {
	s.pool.Close()
}
