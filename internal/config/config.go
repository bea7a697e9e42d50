package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config — конфигурация процесса publika-worker.
//
// Загружается из окружения; .env в рабочей директории подхватывается
// автоматически. Все значения, кроме DB_URL, имеют разумные defaults.
type Config struct {
	// DBURL — строка подключения к PostgreSQL.
	DBURL string

	// RabbitMQURL — строка подключения к RabbitMQ для audit-событий.
	// Пустая строка — события не эмитятся.
	RabbitMQURL string

	// MetricsAddr — адрес HTTP-сервера метрик Prometheus.
	MetricsAddr string

	// Concurrency — максимум одновременных publish jobs.
	Concurrency int

	// PollInterval — интервал polling due jobs.
	PollInterval time.Duration

	// DispatchDelay — отступ между запусками jobs из одного poll.
	DispatchDelay time.Duration

	// RetryBatch — количество retrying jobs за один poll.
	RetryBatch int

	// RetryDispatchDelay — отступ между запусками retrying jobs.
	RetryDispatchDelay time.Duration

	// SchedulerInterval — интервал прохода по schedules.
	SchedulerInterval time.Duration

	// SchedulerBatch — количество schedules за один проход.
	SchedulerBatch int

	// EvergreenPacing — отступ публикации от выборки из evergreen-очереди.
	EvergreenPacing time.Duration

	// MaxAttempts — лимит попыток публикации.
	MaxAttempts int

	// PublishTimeout — дедлайн одного publish-вызова.
	PublishTimeout time.Duration

	// LeaseTTL — срок аренды running jobs.
	LeaseTTL time.Duration

	// DrainTimeout — ожидание активных jobs при остановке.
	DrainTimeout time.Duration

	// FailFastPermanent — не ретраить permanent-ошибки.
	FailFastPermanent bool
}

// Load читает конфигурацию из окружения.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DBURL:             getenv("DB_URL", ""),
		RabbitMQURL:       getenv("RABBITMQ_URL", ""),
		MetricsAddr:       getenv("METRICS_ADDR", ":9090"),
		FailFastPermanent: getenv("FAIL_FAST_PERMANENT", "false") == "true",
	}

	var err error
	if cfg.Concurrency, err = getenvInt("WORKER_CONCURRENCY", 3); err != nil {
		return Config{}, err
	}
	if cfg.RetryBatch, err = getenvInt("RETRY_BATCH", 0); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerBatch, err = getenvInt("SCHEDULER_BATCH", 100); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = getenvInt("MAX_ATTEMPTS", 3); err != nil {
		return Config{}, err
	}

	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DispatchDelay, err = getenvDuration("DISPATCH_DELAY", 0); err != nil {
		return Config{}, err
	}
	if cfg.RetryDispatchDelay, err = getenvDuration("RETRY_DISPATCH_DELAY", 0); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerInterval, err = getenvDuration("SCHEDULER_INTERVAL", 6*cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.EvergreenPacing, err = getenvDuration("EVERGREEN_PACING", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PublishTimeout, err = getenvDuration("PUBLISH_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LeaseTTL, err = getenvDuration("LEASE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.DrainTimeout, err = getenvDuration("DRAIN_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
