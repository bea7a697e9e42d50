package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/shaiso/Publika/internal/domain"
	"github.com/shaiso/Publika/internal/telemetry"
)

// Default configuration values.
const (
	defaultConcurrency  = 3
	defaultPollInterval = 5 * time.Second
	defaultDrainTimeout = 30 * time.Second
)

// JobQueue — операции выборки jobs, нужные диспетчеру.
type JobQueue interface {
	ListDue(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]domain.QueueJob, error)
	ListDueRetries(ctx context.Context, now time.Time, limit int, exclude []uuid.UUID) ([]domain.QueueJob, error)
	ReapExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// JobRunner выполняет один job. Реализуется Processor'ом.
type JobRunner interface {
	ProcessJob(ctx context.Context, jobID uuid.UUID) error
}

// SchedulePass выполняет один проход scheduler'а.
type SchedulePass interface {
	ProcessSchedules(ctx context.Context) error
}

// Worker — диспетчер публикаций.
//
// Запускает четыре цикла:
//   - dispatch: каждые PollInterval забирает due pending jobs и
//     запускает их с ограничением Concurrency и отступом DispatchDelay
//   - retry: тем же темпом забирает due retrying jobs, но не более
//     половины слотов Concurrency и с отдельным, более медленным отступом
//   - scheduler: каждые SchedulerInterval выполняет проход по schedules
//   - reaper: возвращает в pending running jobs с истёкшей арендой
//
// Несколько экземпляров Worker могут работать над одной БД:
// атомарный claim гарантирует, что job выполнится ровно одним.
//
// Shutdown двухфазный: сначала останавливаются циклы (новые jobs не
// принимаются), затем активные jobs дорабатывают до DrainTimeout,
// после чего их контекст отменяется.
type Worker struct {
	queue     JobQueue
	runner    JobRunner
	scheduler SchedulePass

	// Configuration
	concurrency       int
	pollInterval      time.Duration
	schedulerInterval time.Duration
	leaseTTL          time.Duration
	drainTimeout      time.Duration
	retryBatch        int

	// Dispatch pacing and concurrency bounds
	limiter      *rate.Limiter
	retryLimiter *rate.Limiter
	sem          *semaphore.Weighted
	retrySem     *semaphore.Weighted

	// Active set: jobs, находящиеся в работе у этого экземпляра.
	// Передаётся в ListDue как exclude, чтобы один poll не выбрал
	// job повторно, пока тот ещё running.
	active   map[uuid.UUID]struct{}
	activeMu sync.Mutex

	// Lifecycle
	logger     *slog.Logger
	loopCancel context.CancelFunc
	jobCtx     context.Context
	jobCancel  context.CancelFunc
	loopWg     sync.WaitGroup
	jobWg      sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// WorkerConfig — конфигурация Worker.
type WorkerConfig struct {
	Queue  JobQueue
	Runner JobRunner

	// Scheduler (опционально; если nil — проход по schedules не выполняется)
	Scheduler SchedulePass

	// Concurrency — максимум одновременных jobs (default: 3).
	Concurrency int

	// PollInterval — интервал polling due jobs (default: 5s).
	PollInterval time.Duration

	// DispatchDelay — отступ между запусками jobs из одного poll.
	// 0 — без отступа.
	DispatchDelay time.Duration

	// RetryBatch — количество retrying jobs за один poll
	// (default: половина Concurrency, минимум 1).
	RetryBatch int

	// RetryDispatchDelay — отступ между запусками retrying jobs
	// (default: DispatchDelay).
	RetryDispatchDelay time.Duration

	// SchedulerInterval — интервал прохода по schedules
	// (default: 6 * PollInterval).
	SchedulerInterval time.Duration

	// LeaseTTL — срок аренды running jobs, он же интервал reaper'а
	// (default: 5m).
	LeaseTTL time.Duration

	// DrainTimeout — сколько ждать активные jobs при остановке
	// (default: 30s).
	DrainTimeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg WorkerConfig) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	schedulerInterval := cfg.SchedulerInterval
	if schedulerInterval <= 0 {
		schedulerInterval = 6 * pollInterval
	}

	leaseTTL := cfg.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = defaultLeaseTTL
	}

	drainTimeout := cfg.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}

	retryCap := concurrency / 2
	if retryCap < 1 {
		retryCap = 1
	}

	retryBatch := cfg.RetryBatch
	if retryBatch <= 0 {
		retryBatch = retryCap
	}

	retryDelay := cfg.RetryDispatchDelay
	if retryDelay <= 0 {
		retryDelay = cfg.DispatchDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:             cfg.Queue,
		runner:            cfg.Runner,
		scheduler:         cfg.Scheduler,
		concurrency:       concurrency,
		pollInterval:      pollInterval,
		schedulerInterval: schedulerInterval,
		leaseTTL:          leaseTTL,
		drainTimeout:      drainTimeout,
		retryBatch:        retryBatch,
		limiter:           newPacer(cfg.DispatchDelay),
		retryLimiter:      newPacer(retryDelay),
		sem:               semaphore.NewWeighted(int64(concurrency)),
		retrySem:          semaphore.NewWeighted(int64(retryCap)),
		active:            make(map[uuid.UUID]struct{}),
		logger:            logger,
	}
}

// newPacer строит rate limiter с отступом delay между событиями.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Start запускает циклы Worker.
func (w *Worker) Start(ctx context.Context) error {
	loopCtx, loopCancel := context.WithCancel(ctx)
	w.loopCancel = loopCancel

	// Отдельный контекст для jobs: при остановке циклы отменяются
	// сразу, а активные jobs дорабатывают до DrainTimeout.
	w.jobCtx, w.jobCancel = context.WithCancel(context.WithoutCancel(ctx))

	w.logger.Info("starting worker",
		"concurrency", w.concurrency,
		"poll_interval", w.pollInterval,
		"scheduler_interval", w.schedulerInterval,
		"lease_ttl", w.leaseTTL,
	)

	w.loopWg.Add(1)
	go func() {
		defer w.loopWg.Done()
		w.dispatchLoop(loopCtx)
	}()

	w.loopWg.Add(1)
	go func() {
		defer w.loopWg.Done()
		w.retryLoop(loopCtx)
	}()

	if w.scheduler != nil {
		w.loopWg.Add(1)
		go func() {
			defer w.loopWg.Done()
			w.schedulerLoop(loopCtx)
		}()
	}

	w.loopWg.Add(1)
	go func() {
		defer w.loopWg.Done()
		w.reapLoop(loopCtx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
//
// Сначала останавливаются циклы (новые jobs не принимаются), затем
// активные jobs дорабатывают. Если за DrainTimeout они не завершились,
// их контекст отменяется и publish-вызовы прерываются.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	if w.stopped {
		w.stoppedMu.Unlock()
		return
	}
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.loopCancel != nil {
		w.loopCancel()
	}
	w.loopWg.Wait()

	done := make(chan struct{})
	go func() {
		w.jobWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.drainTimeout):
		w.logger.Warn("drain timeout exceeded, aborting in-flight jobs",
			"active", w.activeCount(),
		)
		w.jobCancel()
		<-done
	}
	w.jobCancel()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// dispatchLoop — основной цикл диспетчеризации due pending jobs.
func (w *Worker) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем jobs, ставшие due
	// пока worker был выключен).
	w.dispatchDue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.dispatchDue(ctx)
		}
	}
}

// dispatchDue выполняет один цикл диспетчеризации.
func (w *Worker) dispatchDue(ctx context.Context) {
	slots := w.concurrency - w.activeCount()
	if slots <= 0 {
		return
	}

	jobs, err := w.queue.ListDue(ctx, time.Now(), slots, w.activeIDs())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("failed to list due jobs", "error", err)
		}
		return
	}

	if len(jobs) == 0 {
		return
	}

	w.logger.Debug("poll found due jobs", "count", len(jobs))

	for i := range jobs {
		w.launch(ctx, jobs[i].ID, w.limiter, nil)
	}
}

// retryLoop — цикл диспетчеризации due retrying jobs. Retry-поток
// ограничен половиной Concurrency, чтобы всплеск ретраев не вытеснил
// свежие публикации.
func (w *Worker) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.dispatchRetries(ctx)
		}
	}
}

// dispatchRetries выполняет один retry-цикл.
func (w *Worker) dispatchRetries(ctx context.Context) {
	jobs, err := w.queue.ListDueRetries(ctx, time.Now(), w.retryBatch, w.activeIDs())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("failed to list due retries", "error", err)
		}
		return
	}

	for i := range jobs {
		w.launch(ctx, jobs[i].ID, w.retryLimiter, w.retrySem)
	}
}

// launch запускает обработку одного job в отдельной горутине.
//
// Порядок: регистрация в active set → отступ limiter'а → слот extra
// (для retry-потока) → слот sem. Блокировка на sem задерживает
// dispatch-цикл, но выборка по свободным слотам делает это редким.
func (w *Worker) launch(ctx context.Context, jobID uuid.UUID, limiter *rate.Limiter, extra *semaphore.Weighted) {
	if !w.markActive(jobID) {
		return
	}

	if err := limiter.Wait(ctx); err != nil {
		w.unmarkActive(jobID)
		return
	}

	if extra != nil {
		if err := extra.Acquire(ctx, 1); err != nil {
			w.unmarkActive(jobID)
			return
		}
	}

	if err := w.sem.Acquire(ctx, 1); err != nil {
		if extra != nil {
			extra.Release(1)
		}
		w.unmarkActive(jobID)
		return
	}

	w.jobWg.Add(1)
	go func() {
		defer w.jobWg.Done()
		defer w.sem.Release(1)
		if extra != nil {
			defer extra.Release(1)
		}
		defer w.unmarkActive(jobID)

		w.runJob(jobID)
	}()
}

// runJob выполняет один job. Паника внутри job не роняет worker.
func (w *Worker) runJob(jobID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic while processing job",
				"job_id", jobID,
				"panic", r,
			)
		}
	}()

	if err := w.runner.ProcessJob(w.jobCtx, jobID); err != nil {
		// Job забрал другой экземпляр — ожидаемая ситуация.
		if errors.Is(err, ErrJobNotClaimable) {
			w.logger.Debug("job not claimable", "job_id", jobID)
			return
		}
		w.logger.Error("failed to process job", "job_id", jobID, "error", err)
	}
}

// schedulerLoop — цикл прохода по schedules.
func (w *Worker) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(w.schedulerInterval)
	defer ticker.Stop()

	w.runSchedulerPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runSchedulerPass(ctx)
		}
	}
}

func (w *Worker) runSchedulerPass(ctx context.Context) {
	if err := w.scheduler.ProcessSchedules(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("scheduler pass failed", "error", err)
		}
	}
}

// reapLoop возвращает running jobs с истёкшей арендой обратно в
// pending. Страховка от экземпляра, умершего посреди публикации.
func (w *Worker) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(w.leaseTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reapExpired(ctx)
		}
	}
}

func (w *Worker) reapExpired(ctx context.Context) {
	ids, err := w.queue.ReapExpired(ctx, time.Now())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("failed to reap expired jobs", "error", err)
		}
		return
	}

	if len(ids) == 0 {
		return
	}

	telemetry.JobsReaped.Add(float64(len(ids)))
	w.logger.Warn("requeued jobs with expired lease",
		"count", len(ids),
		"job_ids", ids,
	)
}

// markActive регистрирует job в active set. Возвращает false, если
// job уже в работе.
func (w *Worker) markActive(jobID uuid.UUID) bool {
	w.activeMu.Lock()
	defer w.activeMu.Unlock()

	if _, ok := w.active[jobID]; ok {
		return false
	}
	w.active[jobID] = struct{}{}
	return true
}

func (w *Worker) unmarkActive(jobID uuid.UUID) {
	w.activeMu.Lock()
	defer w.activeMu.Unlock()
	delete(w.active, jobID)
}

func (w *Worker) activeCount() int {
	w.activeMu.Lock()
	defer w.activeMu.Unlock()
	return len(w.active)
}

func (w *Worker) activeIDs() []uuid.UUID {
	w.activeMu.Lock()
	defer w.activeMu.Unlock()

	if len(w.active) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(w.active))
	for id := range w.active {
		ids = append(ids, id)
	}
	return ids
}
