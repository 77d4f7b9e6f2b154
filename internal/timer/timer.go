// Package timer implements the recording session: a two-state machine
// (Idle, Recording) that measures one wall-clock interval at a time and
// turns it into a calendar entry when stopped.
package timer

import (
	"context"
	"sync"
	"time"

	"caltrack/internal/derive"
	"caltrack/internal/engine"
	appLog "caltrack/internal/log"
	"caltrack/internal/model"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Creator is the create path of the engine.
type Creator interface {
	Create(ctx context.Context, d model.Draft) *engine.Request
}

// Tick is a display-only progress report. Elapsed is always measured from
// the recorded start, never accumulated from earlier ticks.
type Tick struct {
	Elapsed time.Duration
	Readout string
}

// Timer owns one session. It is safe for concurrent use.
type Timer struct {
	creator  Creator
	now      func() time.Time
	interval time.Duration
	title    string

	mu         sync.Mutex
	start      time.Time
	stopTicker context.CancelFunc
	tickerDone chan struct{}

	ticks chan Tick
}

type Option func(*Timer)

func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTitle sets the title of created entries. Empty means the engine's
// default.
func WithTitle(title string) Option {
	return func(t *Timer) { t.title = title }
}

func New(creator Creator, opts ...Option) *Timer {
	t := &Timer{
		creator:  creator,
		now:      time.Now,
		interval: time.Second,
		ticks:    make(chan Tick, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ticks delivers about one Tick per interval while recording. Ticks are
// dropped if the reader falls behind.
func (t *Timer) Ticks() <-chan Tick { return t.ticks }

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		return Idle
	}
	return Recording
}

// StartedAt returns the recorded start, or the zero time when idle.
func (t *Timer) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.start
}

// Elapsed returns the live duration of the current session, zero when idle.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *Timer) elapsedLocked() time.Duration {
	if t.start.IsZero() {
		return 0
	}
	d := t.now().Sub(t.start)
	if d < 0 {
		return 0
	}
	return d
}

// Start moves Idle to Recording and reports whether it did. While already
// recording it returns false and leaves the recorded start untouched. The
// ticker lives until Stop, Close or ctx is done; cancelling ctx ends the
// ticks but not the session.
func (t *Timer) Start(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.start.IsZero() {
		return false
	}
	t.start = t.now()

	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.stopTicker = cancel
	t.tickerDone = done
	go t.tick(tickCtx, t.start, done)

	appLog.Info("session started", "start", t.start.Format(time.RFC3339))
	return true
}

// Stop moves Recording to Idle and creates an entry for the session. The
// start is read and cleared under one lock, so a second Stop for the same
// session returns (nil, false) and never creates a duplicate.
func (t *Timer) Stop(ctx context.Context) (*engine.Request, bool) {
	t.mu.Lock()
	if t.start.IsZero() {
		t.mu.Unlock()
		return nil, false
	}
	start := t.start
	t.start = time.Time{}
	t.haltTickerLocked()
	t.mu.Unlock()

	appLog.Info("session stopped", "start", start.Format(time.RFC3339))
	// End is left zero so the engine stamps the wall clock at call time.
	req := t.creator.Create(ctx, model.Draft{Title: t.title, Start: start})
	return req, true
}

// Close stops the ticker without creating an entry and discards the session.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = time.Time{}
	t.haltTickerLocked()
}

func (t *Timer) haltTickerLocked() {
	if t.stopTicker == nil {
		return
	}
	t.stopTicker()
	t.stopTicker = nil
	t.tickerDone = nil
	// Drop a tick the ended session left buffered.
	select {
	case <-t.ticks:
	default:
	}
}

// Done returns a channel closed when the current ticker exits, or nil when
// no ticker is running.
func (t *Timer) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickerDone
}

func (t *Timer) tick(ctx context.Context, start time.Time, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := t.now().Sub(start)
			if elapsed < 0 {
				elapsed = 0
			}
			t.publish(done, Tick{Elapsed: elapsed, Readout: derive.Readout(elapsed)})
		}
	}
}

// publish delivers tick only while done still belongs to the running
// session, so a halted ticker can never leak into the next one.
func (t *Timer) publish(done chan struct{}, tick Tick) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tickerDone != done {
		return
	}
	select {
	case t.ticks <- tick:
	default:
	}
}
