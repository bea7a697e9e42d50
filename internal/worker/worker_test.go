package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Publika/internal/domain"
)

// fakeEngine — очередь и исполнитель в одном: отдаёт pending jobs
// диспетчеру и считает конкурентность выполнения.
type fakeEngine struct {
	mu         sync.Mutex
	pending    map[uuid.UUID]bool
	retries    map[uuid.UUID]bool
	running    int
	maxRunning int
	processed  int
	reapCalls  int
	procErr    error

	// block, если непустой, задерживает ProcessJob до закрытия.
	block chan struct{}
}

func newFakeEngine(pendingCount int) *fakeEngine {
	pending := make(map[uuid.UUID]bool, pendingCount)
	for i := 0; i < pendingCount; i++ {
		pending[uuid.New()] = true
	}
	return &fakeEngine{pending: pending, retries: map[uuid.UUID]bool{}}
}

func (e *fakeEngine) list(src map[uuid.UUID]bool, limit int, exclude []uuid.UUID) []domain.QueueJob {
	excluded := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var jobs []domain.QueueJob
	for id := range src {
		if excluded[id] {
			continue
		}
		jobs = append(jobs, domain.QueueJob{ID: id})
		if len(jobs) == limit {
			break
		}
	}
	return jobs
}

func (e *fakeEngine) ListDue(_ context.Context, _ time.Time, limit int, exclude []uuid.UUID) ([]domain.QueueJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list(e.pending, limit, exclude), nil
}

func (e *fakeEngine) ListDueRetries(_ context.Context, _ time.Time, limit int, exclude []uuid.UUID) ([]domain.QueueJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list(e.retries, limit, exclude), nil
}

func (e *fakeEngine) ReapExpired(_ context.Context, _ time.Time) ([]uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapCalls++
	return nil, nil
}

func (e *fakeEngine) ProcessJob(_ context.Context, id uuid.UUID) error {
	e.mu.Lock()
	e.running++
	if e.running > e.maxRunning {
		e.maxRunning = e.running
	}
	block := e.block
	e.mu.Unlock()

	if block != nil {
		<-block
	}

	e.mu.Lock()
	e.running--
	delete(e.pending, id)
	delete(e.retries, id)
	e.processed++
	e.mu.Unlock()
	return e.procErr
}

func (e *fakeEngine) stats() (processed, maxRunning int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processed, e.maxRunning
}

// waitFor опрашивает условие до дедлайна.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}

// --- Tests ---

// Конкурентность выполнения не превышает Concurrency даже при
// большом числе due jobs.
func TestWorkerConcurrencyBound(t *testing.T) {
	engine := newFakeEngine(6)
	engine.block = make(chan struct{})

	w := New(WorkerConfig{
		Queue:        engine,
		Runner:       engine,
		Concurrency:  2,
		PollInterval: 10 * time.Millisecond,
		LeaseTTL:     time.Hour,
		DrainTimeout: time.Second,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return engine.running == 2
	}, "two jobs running")

	// Даём дополнительным poll'ам шанс превысить лимит
	time.Sleep(50 * time.Millisecond)

	engine.mu.Lock()
	if engine.maxRunning > 2 {
		engine.mu.Unlock()
		t.Fatalf("max concurrent = %d, want <= 2", engine.maxRunning)
	}
	engine.mu.Unlock()

	close(engine.block)
	waitFor(t, 2*time.Second, func() bool {
		processed, _ := engine.stats()
		return processed == 6
	}, "all jobs processed")

	w.Stop()

	if _, maxRunning := engine.stats(); maxRunning > 2 {
		t.Errorf("max concurrent = %d, want <= 2", maxRunning)
	}
}

// Stop дожидается активных jobs.
func TestWorkerStopDrains(t *testing.T) {
	engine := newFakeEngine(2)
	engine.block = make(chan struct{})

	w := New(WorkerConfig{
		Queue:        engine,
		Runner:       engine,
		Concurrency:  2,
		PollInterval: 10 * time.Millisecond,
		LeaseTTL:     time.Hour,
		DrainTimeout: time.Second,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return engine.running == 2
	}, "two jobs running")

	// Разблокируем jobs чуть позже, чем начнётся Stop
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(engine.block)
	}()

	w.Stop()

	processed, _ := engine.stats()
	if processed != 2 {
		t.Errorf("processed = %d after drain, want 2", processed)
	}
	if !w.IsStopped() {
		t.Error("worker should report stopped")
	}
}

// Retry-jobs тоже диспетчеризуются.
func TestWorkerDispatchesRetries(t *testing.T) {
	engine := newFakeEngine(0)
	engine.retries[uuid.New()] = true

	w := New(WorkerConfig{
		Queue:        engine,
		Runner:       engine,
		Concurrency:  2,
		PollInterval: 10 * time.Millisecond,
		LeaseTTL:     time.Hour,
		DrainTimeout: time.Second,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitFor(t, time.Second, func() bool {
		processed, _ := engine.stats()
		return processed == 1
	}, "retry job processed")
}

// ErrJobNotClaimable от исполнителя не считается сбоем и не
// останавливает диспетчеризацию.
func TestWorkerToleratesUnclaimableJobs(t *testing.T) {
	engine := newFakeEngine(3)
	engine.procErr = ErrJobNotClaimable

	w := New(WorkerConfig{
		Queue:        engine,
		Runner:       engine,
		Concurrency:  2,
		PollInterval: 10 * time.Millisecond,
		LeaseTTL:     time.Hour,
		DrainTimeout: time.Second,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitFor(t, time.Second, func() bool {
		processed, _ := engine.stats()
		return processed == 3
	}, "all jobs attempted")
}

// Reaper периодически возвращает jobs с истёкшей арендой.
func TestWorkerRunsReaper(t *testing.T) {
	engine := newFakeEngine(0)

	w := New(WorkerConfig{
		Queue:        engine,
		Runner:       engine,
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
		LeaseTTL:     20 * time.Millisecond,
		DrainTimeout: time.Second,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitFor(t, time.Second, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return engine.reapCalls >= 2
	}, "reaper invocations")
}
