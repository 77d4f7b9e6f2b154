package engine

import (
	"caltrack/internal/model"
)

// Op names the remote verb a request performs.
type Op string

const (
	OpLoad   Op = "load"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Failure reasons surfaced in Failed.Reason. Create reports the underlying
// error message instead.
const (
	ReasonLoad   = "Fail to load events"
	ReasonUpdate = "Fail to update event"
	ReasonDelete = "Fail to delete event"
)

// Outcome is one phase of a request: Issued, then exactly one of Loaded,
// Created, Updated, Deleted, Failed or Discarded. The set is closed; only
// this package can add variants.
type Outcome interface {
	RequestID() string
	isOutcome()
}

// Issued is published when a request has been handed to the remote service.
type Issued struct {
	ReqID string
	Op    Op
	ID    int64
}

type Loaded struct {
	ReqID   string
	Entries []model.Entry
}

type Created struct {
	ReqID string
	Entry model.Entry
}

type Updated struct {
	ReqID string
	Entry model.Entry
}

type Deleted struct {
	ReqID string
	ID    int64
}

// Failed is a terminal outcome that left the store untouched.
type Failed struct {
	ReqID  string
	Op     Op
	ID     int64
	Reason string
	Err    error
}

// Discarded is a remote success that was not applied because a newer
// request had already been applied for the same data.
type Discarded struct {
	ReqID  string
	Op     Op
	ID     int64
	Reason string
}

func (o Issued) RequestID() string    { return o.ReqID }
func (o Loaded) RequestID() string    { return o.ReqID }
func (o Created) RequestID() string   { return o.ReqID }
func (o Updated) RequestID() string   { return o.ReqID }
func (o Deleted) RequestID() string   { return o.ReqID }
func (o Failed) RequestID() string    { return o.ReqID }
func (o Discarded) RequestID() string { return o.ReqID }

func (Issued) isOutcome()    {}
func (Loaded) isOutcome()    {}
func (Created) isOutcome()   {}
func (Updated) isOutcome()   {}
func (Deleted) isOutcome()   {}
func (Failed) isOutcome()    {}
func (Discarded) isOutcome() {}

func (f Failed) Error() string {
	if f.Err != nil {
		return f.Reason + ": " + f.Err.Error()
	}
	return f.Reason
}

func (f Failed) Unwrap() error { return f.Err }

// Succeeded reports whether o is a success that was applied to the store.
func Succeeded(o Outcome) bool {
	switch o.(type) {
	case Loaded, Created, Updated, Deleted:
		return true
	default:
		return false
	}
}

// AsError converts a terminal outcome into an error, or nil on success.
// Issued is not terminal and yields nil.
func AsError(o Outcome) error {
	switch v := o.(type) {
	case Failed:
		return v
	case Discarded:
		return &DiscardedError{Outcome: v}
	default:
		return nil
	}
}

// DiscardedError wraps a Discarded outcome for callers that only deal in errors.
type DiscardedError struct {
	Outcome Discarded
}

func (e *DiscardedError) Error() string {
	return string(e.Outcome.Op) + " discarded: " + e.Outcome.Reason
}
