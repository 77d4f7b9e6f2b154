// Package store holds the normalized, immutable collection of calendar
// entries. Every transition returns a new Store; a Store value handed to a
// reader never changes underneath it.
package store

import (
	"errors"

	"caltrack/internal/model"
)

var (
	// ErrDuplicateID is returned by Insert when the id is already present.
	ErrDuplicateID = errors.New("entry id already present")
	// ErrUnknownID is returned by Update when the id is not present.
	ErrUnknownID = errors.New("entry id not present")
)

// Store is an id-indexed mapping plus an explicit ordering. The zero value
// is an empty store.
type Store struct {
	byID  map[int64]model.Entry
	order []int64
}

// Load replaces the whole collection with entries, in the given order.
// A repeated id keeps its first position and its last value.
func Load(entries []model.Entry) Store {
	s := Store{
		byID:  make(map[int64]model.Entry, len(entries)),
		order: make([]int64, 0, len(entries)),
	}
	for _, e := range entries {
		if _, seen := s.byID[e.ID]; !seen {
			s.order = append(s.order, e.ID)
		}
		s.byID[e.ID] = e
	}
	return s
}

// Insert appends e to the end of the ordering.
func (s Store) Insert(e model.Entry) (Store, error) {
	if _, ok := s.byID[e.ID]; ok {
		return s, ErrDuplicateID
	}
	next := s.clone(1)
	next.byID[e.ID] = e
	next.order = append(next.order, e.ID)
	return next, nil
}

// Remove drops id. Removing an absent id returns s unchanged.
func (s Store) Remove(id int64) Store {
	if _, ok := s.byID[id]; !ok {
		return s
	}
	next := Store{
		byID:  make(map[int64]model.Entry, len(s.byID)-1),
		order: make([]int64, 0, len(s.order)-1),
	}
	for _, oid := range s.order {
		if oid == id {
			continue
		}
		next.order = append(next.order, oid)
		next.byID[oid] = s.byID[oid]
	}
	return next
}

// Update replaces the entry stored under e.ID, keeping its position.
// Unknown ids are rejected rather than upserted.
func (s Store) Update(e model.Entry) (Store, error) {
	if _, ok := s.byID[e.ID]; !ok {
		return s, ErrUnknownID
	}
	next := s.clone(0)
	next.byID[e.ID] = e
	return next, nil
}

func (s Store) Len() int { return len(s.order) }

func (s Store) Has(id int64) bool {
	_, ok := s.byID[id]
	return ok
}

func (s Store) Get(id int64) (model.Entry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// IDs returns a copy of the ordering.
func (s Store) IDs() []int64 {
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Entries returns the entries in store order.
func (s Store) Entries() []model.Entry {
	out := make([]model.Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Equal reports whether both stores hold the same entries in the same order.
func (s Store) Equal(o Store) bool {
	if len(s.order) != len(o.order) || len(s.byID) != len(o.byID) {
		return false
	}
	for i, id := range s.order {
		if o.order[i] != id {
			return false
		}
		oe, ok := o.byID[id]
		if !ok || !oe.Equal(s.byID[id]) {
			return false
		}
	}
	return true
}

func (s Store) clone(extra int) Store {
	next := Store{
		byID:  make(map[int64]model.Entry, len(s.byID)+extra),
		order: make([]int64, len(s.order), len(s.order)+extra),
	}
	copy(next.order, s.order)
	for id, e := range s.byID {
		next.byID[id] = e
	}
	return next
}
