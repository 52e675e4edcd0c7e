package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/tasklog/internal/alert"
	"github.com/phrazzld/tasklog/internal/clock"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
)

// Run outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeSkipped  = "skipped"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// ErrSchedulerStopped is returned when work is handed to a stopped scheduler.
var ErrSchedulerStopped = errors.New("scheduler already stopped")

// Materializer is the engine the scheduler drives.
type Materializer interface {
	Materialize(ctx context.Context, day time.Time) (domain.SnapshotResult, error)
}

// Observer receives scheduler events, typically to export metrics.
type Observer interface {
	SnapshotAttempt()
	SnapshotRun(outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) SnapshotAttempt()                  {}
func (noopObserver) SnapshotRun(string, time.Duration) {}

// SchedulerConfig controls retries.
type SchedulerConfig struct {
	// MaxAttempts is the total number of engine calls per run, including the first.
	MaxAttempts int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	// RunTimeout bounds a single attempt. Zero means no bound.
	RunTimeout time.Duration
}

// DefaultSchedulerConfig returns three attempts five minutes apart.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxAttempts: 3,
		RetryDelay:  5 * time.Minute,
		RunTimeout:  30 * time.Minute,
	}
}

// RunReport is the outcome of one scheduled or manual run.
type RunReport struct {
	Day      time.Time
	Attempts int
	Outcome  string
	Result   domain.SnapshotResult
	Err      error
}

// Succeeded reports whether the day is materialized.
func (r RunReport) Succeeded() bool {
	return r.Outcome != OutcomeFailed
}

type inflight struct {
	done   chan struct{}
	report RunReport
}

// Scheduler runs the engine at every UTC midnight and on demand.
type Scheduler struct {
	engine   Materializer
	alerts   alert.Handler
	clock    clock.Clock
	observer Observer
	config   SchedulerConfig
	logger   *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	mu      sync.Mutex
	started bool
	running map[string]*inflight
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithObserver registers o for scheduler events.
func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewScheduler creates a Scheduler. alerts may be nil to only log failures.
func NewScheduler(
	engine Materializer,
	alerts alert.Handler,
	clk clock.Clock,
	config SchedulerConfig,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if clk == nil {
		clk = clock.System()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		engine:     engine,
		alerts:     alerts,
		clock:      clk,
		observer:   noopObserver{},
		config:     config,
		logger:     logger.With(slog.String("component", "snapshot_scheduler")),
		ctx:        ctx,
		cancelFunc: cancel,
		running:    make(map[string]*inflight),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins firing at every UTC midnight.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}
	if s.ctx.Err() != nil {
		return ErrSchedulerStopped
	}
	s.started = true

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("snapshot scheduler started",
		slog.Int("max_attempts", s.config.MaxAttempts),
		slog.Duration("retry_delay", s.config.RetryDelay))
	return nil
}

// Stop cancels the timer and any run waiting to retry, then waits for
// in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancelFunc()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("snapshot scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		now := s.clock.Now()
		wait := clock.NextMidnight(now).Sub(now)

		select {
		case <-s.ctx.Done():
			return
		case fired := <-s.clock.After(wait):
			day := domain.Day(fired)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.Trigger(s.ctx, day)
			}()
		}
	}
}

// Trigger runs day now with the same retry and alert policy as a scheduled
// firing. A run already in progress for day is joined rather than repeated.
func (s *Scheduler) Trigger(ctx context.Context, day time.Time) RunReport {
	day = domain.Day(day)
	key := domain.FormatDay(day)

	s.mu.Lock()
	if run, ok := s.running[key]; ok {
		s.mu.Unlock()
		select {
		case <-run.done:
			return run.report
		case <-ctx.Done():
			return RunReport{Day: day, Outcome: OutcomeFailed, Err: ctx.Err()}
		}
	}
	run := &inflight{done: make(chan struct{})}
	s.running[key] = run
	s.mu.Unlock()

	run.report = s.run(ctx, day)

	s.mu.Lock()
	delete(s.running, key)
	s.mu.Unlock()
	close(run.done)

	return run.report
}

// TriggerAsync starts Trigger for day in the background and returns at
// once. The run is bound to the scheduler's lifetime, so Stop cancels it.
func (s *Scheduler) TriggerAsync(day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return ErrSchedulerStopped
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Trigger(s.ctx, day)
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context, day time.Time) RunReport {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("day", domain.FormatDay(day)))
	started := s.clock.Now()
	report := RunReport{Day: day}

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		report.Attempts = attempt
		s.observer.SnapshotAttempt()

		result, err := s.attempt(ctx, day)
		report.Result = result
		report.Err = err

		switch {
		case err == nil && result.Skipped:
			report.Outcome = OutcomeSkipped
		case err == nil:
			report.Outcome = OutcomeCreated
		case errors.Is(err, domain.ErrConflict):
			// A concurrent run committed first; the day is materialized.
			report.Outcome = OutcomeConflict
			report.Err = nil
			report.Result = domain.SnapshotResult{Day: day, Skipped: true}
		}
		if report.Outcome != "" {
			break
		}

		if !domain.IsRetryable(err) {
			log.Error("snapshot run failed with non-retryable error",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			break
		}
		if attempt == s.config.MaxAttempts {
			log.Error("snapshot run exhausted retries",
				slog.Int("attempts", attempt),
				slog.String("error", err.Error()))
			break
		}

		log.Warn("snapshot attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", s.config.RetryDelay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			report.Err = fmt.Errorf("%w: retry abandoned: %w", err, ctx.Err())
			report.Outcome = OutcomeFailed
			s.observer.SnapshotRun(report.Outcome, s.clock.Now().Sub(started))
			log.Warn("snapshot run canceled before retry")
			return report
		case <-s.clock.After(s.config.RetryDelay):
		}
	}

	if report.Outcome == "" {
		report.Outcome = OutcomeFailed
		s.raise(ctx, report)
	} else {
		log.Info("snapshot run finished",
			slog.String("outcome", report.Outcome),
			slog.Int("attempts", report.Attempts),
			slog.Int("created_count", report.Result.CreatedCount))
	}

	s.observer.SnapshotRun(report.Outcome, s.clock.Now().Sub(started))
	return report
}

func (s *Scheduler) attempt(ctx context.Context, day time.Time) (domain.SnapshotResult, error) {
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}
	return s.engine.Materialize(ctx, day)
}

func (s *Scheduler) raise(ctx context.Context, report RunReport) {
	if s.alerts == nil {
		return
	}
	// The run context may already be canceled; the alert must still go out.
	ctx = context.WithoutCancel(ctx)
	r := alert.NewReport(report.Day, report.Attempts, report.Err, s.clock.Now())
	if err := s.alerts.HandleAlert(ctx, r); err != nil {
		s.logger.Error("failed to deliver snapshot alert",
			slog.String("day", domain.FormatDay(report.Day)),
			slog.String("error", err.Error()))
	}
}
