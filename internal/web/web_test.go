package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caltrack/internal/engine"
	"caltrack/internal/model"
	"caltrack/internal/remote"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var t0 = time.Date(2023, 6, 1, 8, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

func newTestServer(t *testing.T) (*Server, *remote.Client) {
	t.Helper()
	s := NewServer()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, remote.NewClient(ts.URL)
}

func TestHealth(t *testing.T) {
	s := NewServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCreateAnswersOK(t *testing.T) {
	s := NewServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events",
		strings.NewReader(`{"title":"x","dateStart":"2023-01-01T09:00:00Z","dateEnd":"2023-01-01T10:00:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":1`)
}

func TestCRUDOverClient(t *testing.T) {
	s, c := newTestServer(t)
	ctx := context.Background()

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	first, err := c.Create(ctx, model.Draft{Title: "a", Start: t0, End: t0.Add(time.Hour)})
	require.NoError(t, err)
	second, err := c.Create(ctx, model.Draft{Title: "b", Start: t0, End: t0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, time.UTC, first.Start.Location())
	assert.True(t, first.Start.Equal(t0))

	first.Title = "renamed"
	updated, err := c.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	require.NoError(t, c.Delete(ctx, 1))
	list, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, 1, s.Len())

	third, err := c.Create(ctx, model.Draft{Title: "c", Start: t0, End: t0})
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ID, "ids are never reused")
}

func TestUnknownIDIsNotFound(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	err := c.Delete(ctx, 42)
	var se *remote.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.HTTPStatusCode())

	_, err = c.Update(ctx, model.Entry{ID: 42, Start: t0, End: t0})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestBadRequests(t *testing.T) {
	s := NewServer()
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/events", "{not json"},
		{http.MethodPost, "/events", `{"title":"x","dateStart":"2023-01-01T10:00:00Z","dateEnd":"2023-01-01T09:00:00Z"}`},
		{http.MethodPut, "/events/abc", `{}`},
		{http.MethodDelete, "/events/0", ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", tc.method, tc.path)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
	assert.Zero(t, s.Len())
}

func TestEngineAgainstServer(t *testing.T) {
	_, c := newTestServer(t)
	eng := engine.New(c, engine.WithRequestTimeout(5*time.Second))
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	o, err := eng.Create(ctx, model.Draft{Title: "x", Start: t0, End: t0.Add(time.Minute)}).Wait(ctx)
	require.NoError(t, err)
	created, ok := o.(engine.Created)
	require.True(t, ok, "got %#v", o)

	// The stored entity is the server's normalized one.
	got, ok := eng.Snapshot().Get(created.Entry.ID)
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Start.Location())

	require.NoError(t, eng.Delete(ctx, created.Entry.ID).Err(ctx))
	assert.Zero(t, eng.Snapshot().Len())

	o, err = eng.Delete(ctx, created.Entry.ID).Wait(ctx)
	require.NoError(t, err)
	failed, ok := o.(engine.Failed)
	require.True(t, ok, "got %#v", o)
	assert.Equal(t, engine.ReasonDelete, failed.Reason)

	require.NoError(t, eng.Load(ctx).Err(ctx))
	assert.Zero(t, eng.Snapshot().Len())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	c := remote.NewClient("http://" + ln.Addr().String())
	require.Eventually(t, func() bool {
		_, err := c.List(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
