// Package web is an in-memory events server speaking the same JSON contract
// as the remote service. It backs local development and end-to-end tests.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appLog "caltrack/internal/log"
	"caltrack/internal/model"
)

const shutdownTimeout = 5 * time.Second

// Server keeps events in memory. IDs are assigned sequentially from 1 and
// never reused.
type Server struct {
	mu     sync.RWMutex
	byID   map[int64]model.Entry
	order  []int64
	nextID int64

	router *gin.Engine
}

// NewServer constructs an empty Server.
func NewServer() *Server {
	s := &Server{
		byID:   make(map[int64]model.Entry),
		nextID: 1,
	}
	s.router = s.routes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/health", s.handleHealth)
	r.GET("/events", s.handleList)
	r.POST("/events", s.handleCreate)
	r.PUT("/events/:id", s.handleUpdate)
	r.DELETE("/events/:id", s.handleDelete)
	return r
}

// Run serves on listen until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting events server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("events server shutdown failed", err)
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("events server stopped")
	return nil
}

// Len reports how many events are stored.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleList(c *gin.Context) {
	s.mu.RLock()
	out := make([]model.Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	s.mu.RUnlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreate(c *gin.Context) {
	var body model.Entry
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := body.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	e := normalize(body)
	e.ID = s.nextID
	s.nextID++
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
	s.mu.Unlock()

	appLog.Debug("event created", "id", e.ID)
	c.JSON(http.StatusOK, e)
}

func (s *Server) handleUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body model.Entry
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := body.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	if _, exists := s.byID[id]; !exists {
		s.mu.Unlock()
		writeError(c, http.StatusNotFound, "event not found")
		return
	}
	e := normalize(body)
	e.ID = id
	s.byID[id] = e
	s.mu.Unlock()

	c.JSON(http.StatusOK, e)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	if _, exists := s.byID[id]; !exists {
		s.mu.Unlock()
		writeError(c, http.StatusNotFound, "event not found")
		return
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{})
}

// normalize stores times in UTC without sub-second precision, so the
// stored entry can differ from what the client proposed.
func normalize(e model.Entry) model.Entry {
	e.Start = e.Start.UTC().Truncate(time.Second)
	e.End = e.End.UTC().Truncate(time.Second)
	return e
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		appLog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
