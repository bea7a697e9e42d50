// Publika Worker — движок публикаций.
//
// Worker:
//   - Периодически оценивает schedules и создаёт queue jobs
//   - Забирает due jobs атомарным claim и публикует через gateway
//   - Реализует retry с exponential backoff (60s * 2^attempt)
//   - Возвращает в очередь jobs с истёкшей арендой
//
// Workers масштабируются горизонтально: несколько экземпляров могут
// работать над одной БД.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Publika/internal/audit"
	"github.com/shaiso/Publika/internal/config"
	"github.com/shaiso/Publika/internal/credentials"
	"github.com/shaiso/Publika/internal/publish"
	"github.com/shaiso/Publika/internal/repo"
	"github.com/shaiso/Publika/internal/scheduler"
	"github.com/shaiso/Publika/internal/telemetry"
	"github.com/shaiso/Publika/internal/worker"
)

// defaultPlatforms — платформы, маршрутизируемые в gateway по умолчанию.
const defaultPlatforms = "twitter,linkedin,facebook,instagram,threads"

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting publika-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Миграции схемы
	if err := repo.Migrate(cfg.DBURL); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Репозитории
	scheduleRepo := repo.NewScheduleRepo(pool)
	postRepo := repo.NewPostRepo(pool)
	targetRepo := repo.NewTargetRepo(pool)
	jobRepo := repo.NewJobRepo(pool)
	accountRepo := repo.NewAccountRepo(pool)

	// Audit-события в RabbitMQ (опционально)
	var events audit.Emitter = audit.NopEmitter{}
	if cfg.RabbitMQURL != "" {
		emitter, err := audit.NewAMQPEmitter(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, audit events disabled", "error", err)
		} else {
			defer emitter.Close()
			events = emitter
			logger.Info("RabbitMQ connected")
		}
	}

	// Publishers: все платформы идут через publish-gateway
	registry := publish.NewRegistry()
	gatewayURL := os.Getenv("PUBLISH_GATEWAY_URL")
	if gatewayURL == "" {
		gatewayURL = "http://localhost:8090"
	}
	gateway := publish.NewGatewayPublisher(gatewayURL)

	platforms := os.Getenv("PUBLISH_PLATFORMS")
	if platforms == "" {
		platforms = defaultPlatforms
	}
	for _, platform := range strings.Split(platforms, ",") {
		if platform = strings.TrimSpace(platform); platform != "" {
			registry.Register(platform, gateway)
		}
	}
	logger.Info("publishers registered", "platforms", registry.Platforms())

	// Scheduler
	sched := scheduler.New(scheduler.Config{
		Schedules:       scheduleRepo,
		Posts:           postRepo,
		Targets:         targetRepo,
		Jobs:            jobRepo,
		BatchSize:       cfg.SchedulerBatch,
		EvergreenPacing: cfg.EvergreenPacing,
		MaxAttempts:     cfg.MaxAttempts,
		Logger:          logger,
	})

	// Processor
	processor := worker.NewProcessor(worker.ProcessorConfig{
		Jobs:              jobRepo,
		Targets:           targetRepo,
		Posts:             postRepo,
		Accounts:          accountRepo,
		Credentials:       credentials.NewRepoProvider(accountRepo),
		Publisher:         registry,
		Events:            events,
		PublishTimeout:    cfg.PublishTimeout,
		LeaseTTL:          cfg.LeaseTTL,
		FailFastPermanent: cfg.FailFastPermanent,
		Logger:            logger,
	})

	// Worker
	w := worker.New(worker.WorkerConfig{
		Queue:              jobRepo,
		Runner:             processor,
		Scheduler:          sched,
		Concurrency:        cfg.Concurrency,
		PollInterval:       cfg.PollInterval,
		DispatchDelay:      cfg.DispatchDelay,
		RetryBatch:         cfg.RetryBatch,
		RetryDispatchDelay: cfg.RetryDispatchDelay,
		SchedulerInterval:  cfg.SchedulerInterval,
		LeaseTTL:           cfg.LeaseTTL,
		DrainTimeout:       cfg.DrainTimeout,
		Logger:             logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info("listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("publika-worker stopped")
}
