// Package refresh reloads the engine on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"caltrack/internal/engine"
	appLog "caltrack/internal/log"
)

// Loader is the load path of the engine.
type Loader interface {
	Load(ctx context.Context) *engine.Request
}

// Scheduler issues a Load on every cron activation. A run that is still
// waiting for its previous load is skipped rather than queued.
type Scheduler struct {
	loader   Loader
	schedule string
	loc      *time.Location
	notify   func(engine.Outcome)

	mu   sync.Mutex
	cron *cron.Cron
}

type Option func(*Scheduler)

// WithLocation evaluates the schedule in loc instead of time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithNotify registers fn to receive the outcome of every load the
// scheduler issues, including Trigger. fn runs on the goroutine that
// waited for the load.
func WithNotify(fn func(engine.Outcome)) Option {
	return func(s *Scheduler) { s.notify = fn }
}

// New validates schedule (standard five fields or a descriptor such as
// "@every 30s") and returns a stopped Scheduler.
func New(loader Loader, schedule string, opts ...Option) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("refresh: invalid schedule %q: %w", schedule, err)
	}
	s := &Scheduler{
		loader:   loader,
		schedule: schedule,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done. It waits for a
// running load to settle before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", s.schedule, "next", s.Next().Format(time.RFC3339))

	<-ctx.Done()
	<-c.Stop().Done()

	s.mu.Lock()
	s.cron = nil
	s.mu.Unlock()
	appLog.Info("refresh scheduler stopped")
	return nil
}

// Next returns the next activation time, or the zero time when not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Trigger runs one load now, outside the schedule, and returns its outcome.
func (s *Scheduler) Trigger(ctx context.Context) (engine.Outcome, error) {
	return s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) (engine.Outcome, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	req := s.loader.Load(ctx)
	o, err := req.Wait(ctx)
	if err != nil {
		appLog.Warn("scheduled load abandoned", "request_id", req.ID, "error", err.Error())
		return nil, err
	}
	if s.notify != nil {
		s.notify(o)
	}
	return o, nil
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
