// Package remote talks to the events service over JSON/HTTP:
//
//	GET    /events        -> []Entry
//	POST   /events        -> Entry   (body: Draft)
//	PUT    /events/{id}   -> Entry   (body: Entry)
//	DELETE /events/{id}   -> 2xx
//
// Every failure is reported as a *TransportError, *StatusError or
// *DecodeError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	appLog "caltrack/internal/log"
	"caltrack/internal/model"
)

const maxBodyBytes = 4 << 20

// ErrMissingID is wrapped in a DecodeError when a create or update
// response carries no service-assigned id.
var ErrMissingID = errors.New("response entry has no id")

// Client is a thin, stateless client for the events service.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates a client rooted at baseURL, e.g. "http://localhost:3001".
// Per-call deadlines come from the caller's context; the http.Client timeout
// is only a backstop.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) List(ctx context.Context) ([]model.Entry, error) {
	var out []model.Entry
	if err := c.do(ctx, "list", http.MethodGet, "/events", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Entry{}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, d model.Draft) (model.Entry, error) {
	var out model.Entry
	body := model.Draft{Title: d.Title, Start: d.Start.UTC(), End: d.End.UTC()}
	if err := c.do(ctx, "create", http.MethodPost, "/events", body, &out); err != nil {
		return model.Entry{}, err
	}
	if out.ID <= 0 {
		return model.Entry{}, &DecodeError{Op: "create", Err: ErrMissingID}
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, e model.Entry) (model.Entry, error) {
	var out model.Entry
	body := model.Entry{ID: e.ID, Title: e.Title, Start: e.Start.UTC(), End: e.End.UTC()}
	if err := c.do(ctx, "update", http.MethodPut, eventPath(e.ID), body, &out); err != nil {
		return model.Entry{}, err
	}
	if out.ID <= 0 {
		return model.Entry{}, &DecodeError{Op: "update", Err: ErrMissingID}
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, eventPath(id), nil, nil)
}

func eventPath(id int64) string {
	return "/events/" + strconv.FormatInt(id, 10)
}

// do performs one request. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	appLog.Debug("remote request", "op", op, "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
