package model

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when an entry ends before it starts.
var ErrInvalidRange = errors.New("entry ends before it starts")

// Entry is a calendar record as stored by the remote events service.
// ID is assigned by the service and never generated locally.
type Entry struct {
	ID    int64     `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"dateStart"`
	End   time.Time `json:"dateEnd"`
}

// Draft is the body of a create request: an Entry without an ID.
type Draft struct {
	Title string    `json:"title"`
	Start time.Time `json:"dateStart"`
	End   time.Time `json:"dateEnd"`
}

// Duration returns End - Start, or zero for an inverted range.
func (e Entry) Duration() time.Duration {
	if e.End.Before(e.Start) {
		return 0
	}
	return e.End.Sub(e.Start)
}

func (e Entry) Validate() error {
	if e.End.Before(e.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Equal compares entries by value, treating timestamps as instants.
func (e Entry) Equal(o Entry) bool {
	return e.ID == o.ID &&
		e.Title == o.Title &&
		e.Start.Equal(o.Start) &&
		e.End.Equal(o.End)
}

func (d Draft) Validate() error {
	if d.End.Before(d.Start) {
		return ErrInvalidRange
	}
	return nil
}

// WithID turns a draft into an entry, as the service does on create.
func (d Draft) WithID(id int64) Entry {
	return Entry{ID: id, Title: d.Title, Start: d.Start, End: d.End}
}
