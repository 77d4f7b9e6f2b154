package engine

import (
	"caltrack/internal/model"
	"caltrack/internal/store"
)

// reducer owns the store and the bookkeeping that orders remote successes.
// It is only touched by the apply loop.
//
// Requests carry a sequence number taken when they were issued. The last
// issued request wins:
//   - a load older than the last applied load is discarded;
//   - an update older than the last applied create/update of the same id is
//     discarded. A load never outranks a confirmed update, since the service
//     may answer the list before it applies the write;
//   - a load keeps local entries written by requests issued after it, and
//     entries with an update still in flight;
//   - a confirmed delete leaves a tombstone, since ids are never reused, and
//     tombstoned ids are filtered out of every later load, create and update.
type reducer struct {
	state      store.Store
	lastLoad   uint64
	lastWrite  map[int64]uint64
	pending    map[int64]int // updates issued but not yet resolved, per id
	tombstones map[int64]struct{}
}

func newReducer() *reducer {
	return &reducer{
		lastWrite:  make(map[int64]uint64),
		pending:    make(map[int64]int),
		tombstones: make(map[int64]struct{}),
	}
}

// track counts in-flight updates so a load does not overwrite their entry.
func (r *reducer) track(o Outcome) {
	switch v := o.(type) {
	case Issued:
		if v.Op == OpUpdate {
			r.pending[v.ID]++
		}
	case Updated:
		r.settle(v.Entry.ID)
	case Failed:
		if v.Op == OpUpdate {
			r.settle(v.ID)
		}
	}
}

func (r *reducer) settle(id int64) {
	if r.pending[id] <= 1 {
		delete(r.pending, id)
		return
	}
	r.pending[id]--
}

// apply folds one outcome into the store and returns the outcome to
// publish, which differs from o only when o was discarded.
func (r *reducer) apply(seq uint64, o Outcome) Outcome {
	r.track(o)
	switch v := o.(type) {
	case Issued, Failed, Discarded:
		return o

	case Loaded:
		if seq < r.lastLoad {
			return Discarded{ReqID: v.ReqID, Op: OpLoad, Reason: "newer load already applied"}
		}
		r.state = r.merge(seq, v.Entries)
		r.lastLoad = seq
		return v

	case Created:
		id := v.Entry.ID
		if _, gone := r.tombstones[id]; gone {
			return Discarded{ReqID: v.ReqID, Op: OpCreate, ID: id, Reason: "entry already deleted"}
		}
		if last, ok := r.lastWrite[id]; ok && seq < last {
			return Discarded{ReqID: v.ReqID, Op: OpCreate, ID: id, Reason: "newer write already applied"}
		}
		// A concurrent load may have delivered the new entry first.
		if r.state.Has(id) {
			r.state, _ = r.state.Update(v.Entry)
		} else {
			r.state, _ = r.state.Insert(v.Entry)
		}
		r.lastWrite[id] = seq
		return v

	case Updated:
		id := v.Entry.ID
		if _, gone := r.tombstones[id]; gone {
			return Discarded{ReqID: v.ReqID, Op: OpUpdate, ID: id, Reason: "entry already deleted"}
		}
		if last, ok := r.lastWrite[id]; ok && seq < last {
			return Discarded{ReqID: v.ReqID, Op: OpUpdate, ID: id, Reason: "newer write already applied"}
		}
		next, err := r.state.Update(v.Entry)
		if err != nil {
			return Discarded{ReqID: v.ReqID, Op: OpUpdate, ID: id, Reason: err.Error()}
		}
		r.state = next
		r.lastWrite[id] = seq
		return v

	case Deleted:
		r.state = r.state.Remove(v.ID)
		r.tombstones[v.ID] = struct{}{}
		delete(r.lastWrite, v.ID)
		return v

	default:
		return Failed{ReqID: o.RequestID(), Reason: "unknown outcome"}
	}
}

// merge builds the store for a load issued at seq.
func (r *reducer) merge(seq uint64, entries []model.Entry) store.Store {
	next := store.Load(entries)
	for id := range r.tombstones {
		next = next.Remove(id)
	}
	for id, last := range r.lastWrite {
		if last <= seq && r.pending[id] == 0 {
			delete(r.lastWrite, id)
		}
	}

	keep := func(id int64) {
		local, ok := r.state.Get(id)
		if !ok {
			return
		}
		if next.Has(id) {
			next, _ = next.Update(local)
		} else {
			next, _ = next.Insert(local)
		}
	}
	for id := range r.lastWrite {
		keep(id)
	}
	for id := range r.pending {
		if _, done := r.lastWrite[id]; !done {
			keep(id)
		}
	}
	return next
}
