package engine

import (
	"context"

	"github.com/google/uuid"
)

// Request is the future for one engine operation. It resolves exactly once,
// after its terminal outcome has been applied (or rejected) by the apply loop.
type Request struct {
	ID string
	Op Op

	seq     uint64
	done    chan struct{}
	outcome Outcome
}

func newRequest(op Op) *Request {
	return &Request{
		ID:   uuid.NewString(),
		Op:   op,
		done: make(chan struct{}),
	}
}

// Done is closed once the request has a terminal outcome.
func (r *Request) Done() <-chan struct{} { return r.done }

// Outcome returns the terminal outcome, or nil while the request is pending.
func (r *Request) Outcome() Outcome {
	select {
	case <-r.done:
		return r.outcome
	default:
		return nil
	}
}

// Wait blocks until the request resolves or ctx is done.
func (r *Request) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err waits for the request and folds its outcome into an error.
func (r *Request) Err(ctx context.Context) error {
	o, err := r.Wait(ctx)
	if err != nil {
		return err
	}
	return AsError(o)
}

func (r *Request) resolve(o Outcome) {
	r.outcome = o
	close(r.done)
}
