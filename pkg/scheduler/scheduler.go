package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"sanitier/pkg/models"
)

// ErrNoRunYet is returned by LastReport before the first run finished.
var ErrNoRunYet = errors.New("no run has completed yet")

// Runner performs one tiering pass.
type Runner interface {
	Run(ctx context.Context) (*models.RunReport, error)
}

// Scheduler triggers the runner on a cron schedule. A tick that arrives
// while the previous run is still going is skipped, so runs never overlap.
type Scheduler struct {
	runner   Runner
	schedule string
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool

	lastMu     sync.RWMutex
	lastReport *models.RunReport
	lastErr    error
}

// New creates a scheduler for the given cron expression.
func New(runner Runner, schedule string, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{logger: logger}
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		logger:   logger,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}
}

// Start validates the schedule and begins triggering runs. The scheduler
// stops when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule runs: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", s.schedule).Msg("Scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce executes the runner immediately and remembers the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	report, err := s.runner.Run(ctx)

	s.lastMu.Lock()
	s.lastErr = err
	if report != nil {
		s.lastReport = report
	}
	s.lastMu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run failed")
		return
	}
	s.logger.Debug().Str("run_id", report.ID).Str("action", string(report.Action)).Msg("Scheduled run completed")
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next trigger time, or nil when nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// LastReport returns the most recent successful report together with the
// error of the latest attempt, if it failed.
func (s *Scheduler) LastReport() (*models.RunReport, error) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()

	if s.lastReport == nil && s.lastErr == nil {
		return nil, ErrNoRunYet
	}
	return s.lastReport, s.lastErr
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
