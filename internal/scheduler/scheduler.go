// Package scheduler drives periodic checks: each tick computes the due
// set from the interval and cooldown policies and dispatches it through
// a bounded worker set into the check pipeline.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pagewatch/pagewatch/internal/checker"
	"github.com/pagewatch/pagewatch/internal/storage"
	"github.com/pagewatch/pagewatch/internal/types"
)

// CheckRunner executes one check for a monitor. Implemented by
// checker.Pipeline; narrowed to an interface so scheduler tests can run
// without a browser.
type CheckRunner interface {
	Run(ctx context.Context, m *types.Monitor) (*types.CheckRecord, error)
}

// Config holds scheduler configuration
type Config struct {
	TickInterval time.Duration          // how often the due set is computed (default: 1m)
	Concurrency  int                    // simultaneous checks (default: 2)
	CheckTimeout time.Duration          // overall wall-clock budget per check (default: 45s)
	HealthWindow time.Duration          // a success within this window means healthy (default: 5m)
	Policy       *checker.FailurePolicy // cooldown policy (default: checker.DefaultFailurePolicy)
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		TickInterval: time.Minute,
		Concurrency:  2,
		CheckTimeout: 45 * time.Second,
		HealthWindow: 5 * time.Minute,
		Policy:       checker.DefaultFailurePolicy(),
	}
}

// Scheduler owns the check loop. The overlap guard is an atomic flag on
// this object, correct only for a single active scheduler instance; no
// distributed coordination is attempted.
type Scheduler struct {
	store  storage.Storage
	runner CheckRunner
	config *Config

	mu      sync.Mutex
	running bool

	runInProgress atomic.Bool // overlap guard: a tick that finds it set is skipped

	stopCh chan struct{}
	doneCh chan struct{}

	healthMu    sync.Mutex
	startedAt   time.Time
	lastSuccess time.Time
	errorCount  int64
}

// New creates a scheduler
func New(store storage.Storage, runner CheckRunner, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 45 * time.Second
	}
	if cfg.HealthWindow <= 0 {
		cfg.HealthWindow = 5 * time.Minute
	}
	if cfg.Policy == nil {
		cfg.Policy = checker.DefaultFailurePolicy()
	}
	return &Scheduler{
		store:  store,
		runner: runner,
		config: cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the scheduling loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.mu.Unlock()

	s.healthMu.Lock()
	s.startedAt = time.Now()
	s.healthMu.Unlock()

	go s.loop(ctx)
	fmt.Printf("Scheduler: started (tick=%v, concurrency=%d, check_timeout=%v)\n",
		s.config.TickInterval, s.config.Concurrency, s.config.CheckTimeout)
	return nil
}

// Stop signals shutdown and waits for the loop to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.mu.Unlock()

	close(s.stopCh)
	select {
	case <-s.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	// Run once at startup so a restart does not wait a full tick
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one scheduling pass: load active monitors, compute
// the due set, and dispatch it through the bounded worker set. A pass
// that finds the previous one still executing is skipped entirely.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.runInProgress.CompareAndSwap(false, true) {
		fmt.Printf("Scheduler: previous run still executing, skipping tick\n")
		return
	}
	defer s.runInProgress.Store(false)

	monitors, err := s.store.ListMonitors(ctx, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scheduler: failed to load monitors: %v\n", err)
		s.recordError()
		return
	}

	now := time.Now()
	var due []*types.Monitor
	for _, m := range monitors {
		if s.config.Policy.Due(m, now) {
			due = append(due, m)
		}
	}
	if len(due) == 0 {
		return
	}
	fmt.Printf("Scheduler: %d of %d active monitor(s) due\n", len(due), len(monitors))

	sem := semaphore.NewWeighted(int64(s.config.Concurrency))
	var wg sync.WaitGroup
	for _, m := range due {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // shutting down
		}
		wg.Add(1)
		go func(m *types.Monitor) {
			defer wg.Done()
			defer sem.Release(1)
			s.runCheck(ctx, m)
		}(m)
	}
	wg.Wait()
}

// runCheck races one check against the overall budget. On expiry the
// check is abandoned; the pipeline has already persisted the failure on
// its own context, so the loop just moves on.
func (s *Scheduler) runCheck(ctx context.Context, m *types.Monitor) {
	checkCtx, cancel := context.WithTimeout(ctx, s.config.CheckTimeout)
	defer cancel()

	_, err := s.runner.Run(checkCtx, m)
	switch {
	case err == checker.ErrCheckInFlight:
		fmt.Printf("Scheduler: monitor %s already has a check in flight, skipping\n", m.ID)
	case err != nil:
		s.recordError()
	default:
		s.recordSuccess()
	}
}

func (s *Scheduler) recordSuccess() {
	s.healthMu.Lock()
	s.lastSuccess = time.Now()
	s.healthMu.Unlock()
}

func (s *Scheduler) recordError() {
	s.healthMu.Lock()
	s.errorCount++
	s.healthMu.Unlock()
}

// Health reports the externally visible health surface. The scheduler
// is healthy when a check succeeded within the window, or when it
// started so recently that no check has had a chance to complete.
func (s *Scheduler) Health() types.HealthStatus {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	status := types.HealthStatus{ErrorCount: s.errorCount}
	if !s.lastSuccess.IsZero() {
		t := s.lastSuccess
		status.LastSuccessfulCheck = &t
		status.Healthy = time.Since(t) < s.config.HealthWindow
	} else {
		status.Healthy = !s.startedAt.IsZero() && time.Since(s.startedAt) < s.config.HealthWindow
	}
	return status
}
