package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caltrack/internal/engine"
	"caltrack/internal/model"
)

type listRemote struct {
	calls atomic.Int64
}

func (r *listRemote) List(context.Context) ([]model.Entry, error) {
	n := r.calls.Add(1)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.Entry{{ID: n, Title: "x", Start: start, End: start}}, nil
}

func (r *listRemote) Create(_ context.Context, d model.Draft) (model.Entry, error) {
	return d.WithID(1), nil
}

func (r *listRemote) Update(_ context.Context, e model.Entry) (model.Entry, error) { return e, nil }

func (r *listRemote) Delete(context.Context, int64) error { return nil }

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(nil, "not a schedule")
	assert.Error(t, err)
}

func TestTriggerLoadsAndNotifies(t *testing.T) {
	remote := &listRemote{}
	eng := engine.New(remote)
	defer eng.Close()

	var notified atomic.Int64
	s, err := New(eng, "*/5 * * * *", WithNotify(func(o engine.Outcome) {
		if _, ok := o.(engine.Loaded); ok {
			notified.Add(1)
		}
	}))
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	o, err := s.Trigger(context.Background())
	require.NoError(t, err)
	require.IsType(t, engine.Loaded{}, o)
	assert.Equal(t, []int64{1}, eng.Snapshot().IDs())
	assert.Equal(t, int64(1), notified.Load())
}

func TestTriggerWithDoneContext(t *testing.T) {
	s, err := New(&nopLoader{}, "@hourly")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Trigger(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type nopLoader struct{}

func (nopLoader) Load(context.Context) *engine.Request {
	panic("load must not be called")
}

func TestRunReloadsOnSchedule(t *testing.T) {
	remote := &listRemote{}
	eng := engine.New(remote)
	defer eng.Close()

	loads := make(chan engine.Outcome, 8)
	s, err := New(eng, "@every 1s", WithLocation(time.UTC), WithNotify(func(o engine.Outcome) {
		select {
		case loads <- o:
		default:
		}
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case o := <-loads:
		assert.IsType(t, engine.Loaded{}, o)
	case <-time.After(5 * time.Second):
		t.Fatal("no scheduled load")
	}
	assert.False(t, s.Next().IsZero())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.True(t, s.Next().IsZero())
	assert.NotZero(t, eng.Snapshot().Len())
}
