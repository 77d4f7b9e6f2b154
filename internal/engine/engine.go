// Package engine keeps a local store of calendar entries consistent with the
// remote events service.
//
// Each operation issues one remote call on its own goroutine and returns a
// *Request at once. Results flow through a single apply loop, the only place
// the store changes, so transitions never overlap. Only confirmed successes
// mutate the store; every failure becomes a Failed outcome.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	appLog "caltrack/internal/log"
	"caltrack/internal/model"
	"caltrack/internal/remote"
	"caltrack/internal/store"
)

// ErrClosed is carried by Failed outcomes of requests issued after Close.
var ErrClosed = errors.New("engine closed")

const (
	defaultQueueSize      = 64
	defaultRequestTimeout = 10 * time.Second
	defaultTitle          = "No name"
)

// Remote is the events service as seen by the engine.
type Remote interface {
	List(ctx context.Context) ([]model.Entry, error)
	Create(ctx context.Context, d model.Draft) (model.Entry, error)
	Update(ctx context.Context, e model.Entry) (model.Entry, error)
	Delete(ctx context.Context, id int64) error
}

type message struct {
	seq     uint64
	req     *Request
	outcome Outcome
}

// Engine is the CRUD orchestrator. Construct with New and release with Close.
type Engine struct {
	remote       Remote
	now          func() time.Time
	timeout      time.Duration
	defaultTitle string
	queueSize    int

	in       chan message
	loopDone chan struct{}
	reducer  *reducer

	mu    sync.RWMutex
	state store.Store

	subMu   sync.Mutex
	subs    map[int]chan Outcome
	nextSub int

	life     sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc

	seq atomic.Uint64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRequestTimeout bounds each remote call.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithDefaultTitle sets the title used when a draft has none.
func WithDefaultTitle(title string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(title) != "" {
			e.defaultTitle = title
		}
	}
}

// WithQueueSize sets the apply loop's buffer.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// New creates an engine with an empty store and starts its apply loop.
func New(r Remote, opts ...Option) *Engine {
	e := &Engine{
		remote:       r,
		now:          time.Now,
		timeout:      defaultRequestTimeout,
		defaultTitle: defaultTitle,
		queueSize:    defaultQueueSize,
		loopDone:     make(chan struct{}),
		reducer:      newReducer(),
		subs:         make(map[int]chan Outcome),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.in = make(chan message, e.queueSize)
	e.baseCtx, e.cancel = context.WithCancel(context.Background())

	go e.run()
	return e
}

// Snapshot returns the current store. The value never changes afterwards.
func (e *Engine) Snapshot() store.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Load replaces the store with the remote list on success.
func (e *Engine) Load(ctx context.Context) *Request {
	return e.issue(ctx, OpLoad, 0, func(ctx context.Context, reqID string) Outcome {
		entries, err := e.remote.List(ctx)
		if err != nil {
			return Failed{ReqID: reqID, Op: OpLoad, Reason: ReasonLoad, Err: err}
		}
		return Loaded{ReqID: reqID, Entries: entries}
	})
}

// Create sends d to the service and inserts the returned entry.
//
// d.Start must already be captured by the caller. An empty title becomes
// the default title, and a zero End becomes the engine clock at call time,
// read here, before the remote call starts. An End before Start (the wall
// clock stepped back) is clamped to Start.
func (e *Engine) Create(ctx context.Context, d model.Draft) *Request {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = e.defaultTitle
	}
	if d.End.IsZero() {
		d.End = e.now()
	}
	if d.End.Before(d.Start) {
		d.End = d.Start
	}
	return e.issue(ctx, OpCreate, 0, func(ctx context.Context, reqID string) Outcome {
		created, err := e.remote.Create(ctx, d)
		if err != nil {
			return Failed{ReqID: reqID, Op: OpCreate, Reason: err.Error(), Err: err}
		}
		return Created{ReqID: reqID, Entry: created}
	})
}

// Update sends the full entry and stores the entry the service returns.
// Entries ending before they start are rejected without a remote call.
func (e *Engine) Update(ctx context.Context, entry model.Entry) *Request {
	return e.issue(ctx, OpUpdate, entry.ID, func(ctx context.Context, reqID string) Outcome {
		if err := entry.Validate(); err != nil {
			return Failed{ReqID: reqID, Op: OpUpdate, ID: entry.ID, Reason: ReasonUpdate, Err: err}
		}
		updated, err := e.remote.Update(ctx, entry)
		if err != nil {
			return Failed{ReqID: reqID, Op: OpUpdate, ID: entry.ID, Reason: ReasonUpdate, Err: err}
		}
		return Updated{ReqID: reqID, Entry: updated}
	})
}

// Delete removes id locally once the service confirms the delete.
func (e *Engine) Delete(ctx context.Context, id int64) *Request {
	return e.issue(ctx, OpDelete, id, func(ctx context.Context, reqID string) Outcome {
		if err := e.remote.Delete(ctx, id); err != nil {
			return Failed{ReqID: reqID, Op: OpDelete, ID: id, Reason: ReasonDelete, Err: err}
		}
		return Deleted{ReqID: reqID, ID: id}
	})
}

// Subscribe returns a channel receiving every applied outcome, Issued
// included. Outcomes are dropped rather than blocking the apply loop when
// the channel is full. cancel unregisters and closes the channel.
func (e *Engine) Subscribe(buffer int) (<-chan Outcome, func()) {
	if buffer <= 0 {
		buffer = defaultQueueSize
	}
	ch := make(chan Outcome, buffer)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	if e.subs == nil {
		// Already closed.
		e.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subs[id] = ch
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

// Close cancels in-flight remote calls, waits until their outcomes have
// been applied, and stops the apply loop. It is safe to call more than once.
func (e *Engine) Close() error {
	e.life.Lock()
	if e.closed {
		e.life.Unlock()
		return nil
	}
	e.closed = true
	e.life.Unlock()

	e.cancel()
	e.inflight.Wait()
	close(e.in)
	<-e.loopDone

	e.subMu.Lock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.subs = nil
	e.subMu.Unlock()

	appLog.Debug("engine closed", "requests", e.seq.Load())
	return nil
}

type call func(ctx context.Context, reqID string) Outcome

func (e *Engine) issue(ctx context.Context, op Op, id int64, fn call) *Request {
	req := newRequest(op)

	e.life.Lock()
	if e.closed {
		e.life.Unlock()
		req.resolve(Failed{ReqID: req.ID, Op: op, ID: id, Reason: ErrClosed.Error(), Err: ErrClosed})
		return req
	}
	req.seq = e.seq.Add(1)
	e.inflight.Add(1)
	e.life.Unlock()

	e.in <- message{seq: req.seq, outcome: Issued{ReqID: req.ID, Op: op, ID: id}}

	go func() {
		defer e.inflight.Done()

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		stop := context.AfterFunc(e.baseCtx, cancel)
		defer stop()

		out := fn(callCtx, req.ID)
		e.in <- message{seq: req.seq, req: req, outcome: out}
	}()

	return req
}

func (e *Engine) run() {
	defer close(e.loopDone)

	for msg := range e.in {
		applied := e.reducer.apply(msg.seq, msg.outcome)

		e.mu.Lock()
		e.state = e.reducer.state
		e.mu.Unlock()

		logOutcome(applied)
		e.publish(applied)

		if msg.req != nil {
			msg.req.resolve(applied)
		}
	}
}

func (e *Engine) publish(o Outcome) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- o:
		default:
		}
	}
}

func logOutcome(o Outcome) {
	switch v := o.(type) {
	case Issued:
		appLog.Debug("request issued", "request_id", v.ReqID, "op", v.Op, "id", v.ID)
	case Loaded:
		appLog.Info("events loaded", "request_id", v.ReqID, "count", len(v.Entries))
	case Created:
		appLog.Info("event created", "request_id", v.ReqID, "id", v.Entry.ID)
	case Updated:
		appLog.Info("event updated", "request_id", v.ReqID, "id", v.Entry.ID)
	case Deleted:
		appLog.Info("event deleted", "request_id", v.ReqID, "id", v.ID)
	case Failed:
		appLog.Error("request failed", v.Err, "request_id", v.ReqID, "op", v.Op, "id", v.ID,
			"reason", v.Reason, "kind", remote.Kind(v.Err))
	case Discarded:
		appLog.Warn("stale response discarded", "request_id", v.ReqID, "op", v.Op, "id", v.ID, "reason", v.Reason)
	default:
		appLog.Error("unknown outcome", errors.New("unhandled outcome type"), "request_id", o.RequestID())
	}
}
