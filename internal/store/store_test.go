package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caltrack/internal/model"
)

var base = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func entry(id int64, title string) model.Entry {
	start := base.Add(time.Duration(id) * time.Hour)
	return model.Entry{ID: id, Title: title, Start: start, End: start.Add(30 * time.Minute)}
}

func TestLoadPreservesOrder(t *testing.T) {
	for n := 0; n < 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			entries := make([]model.Entry, 0, n)
			for i := n; i > 0; i-- {
				entries = append(entries, entry(int64(i*7), fmt.Sprintf("e%d", i)))
			}

			s := Load(entries)
			assert.Equal(t, entries, s.Entries())
			assert.Equal(t, n, s.Len())
		})
	}
}

func TestLoadReplacesPreviousContent(t *testing.T) {
	s := Load([]model.Entry{entry(1, "a"), entry(2, "b")})
	s = Load([]model.Entry{entry(3, "c")})

	assert.Equal(t, []int64{3}, s.IDs())
	assert.False(t, s.Has(1))
}

func TestLoadDuplicateIDKeepsFirstPositionLastValue(t *testing.T) {
	s := Load([]model.Entry{entry(1, "old"), entry(2, "b"), entry(1, "new")})

	assert.Equal(t, []int64{1, 2}, s.IDs())
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "new", got.Title)
}

func TestInsertThenRemoveRestoresState(t *testing.T) {
	before := Load([]model.Entry{entry(1, "a"), entry(2, "b")})

	inserted, err := before.Insert(entry(9, "x"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 9}, inserted.IDs())

	after := inserted.Remove(9)
	assert.True(t, after.Equal(before))
}

func TestInsertDuplicateIsRejected(t *testing.T) {
	s := Load([]model.Entry{entry(1, "a")})

	next, err := s.Insert(entry(1, "dup"))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.True(t, next.Equal(s))
}

func TestUpdateTouchesOnlyOneEntry(t *testing.T) {
	s := Load([]model.Entry{entry(1, "a"), entry(2, "b"), entry(3, "c")})

	changed := entry(2, "renamed")
	next, err := s.Update(changed)
	require.NoError(t, err)

	assert.Equal(t, s.IDs(), next.IDs())
	for _, id := range []int64{1, 3} {
		want, _ := s.Get(id)
		got, _ := next.Get(id)
		assert.Equal(t, want, got)
	}
	got, _ := next.Get(2)
	assert.Equal(t, changed, got)
}

func TestUpdateUnknownIDIsRejected(t *testing.T) {
	s := Load([]model.Entry{entry(1, "a")})

	next, err := s.Update(entry(5, "ghost"))
	assert.ErrorIs(t, err, ErrUnknownID)
	assert.True(t, next.Equal(s))
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := Load([]model.Entry{entry(1, "a")})
	assert.True(t, s.Remove(42).Equal(s))

	var empty Store
	assert.Equal(t, 0, empty.Remove(1).Len())
}

func TestTransitionsLeaveSnapshotsIntact(t *testing.T) {
	snap := Load([]model.Entry{entry(1, "a"), entry(2, "b")})
	ids := snap.IDs()
	entries := snap.Entries()

	_, err := snap.Insert(entry(3, "c"))
	require.NoError(t, err)
	_, err = snap.Update(entry(1, "changed"))
	require.NoError(t, err)
	_ = snap.Remove(2)

	assert.Equal(t, ids, snap.IDs())
	assert.Equal(t, entries, snap.Entries())
}

func TestZeroValueStore(t *testing.T) {
	var s Store

	next, err := s.Insert(entry(1, "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, next.Len())
	assert.Equal(t, 0, s.Len())
	assert.True(t, Store{}.Equal(Load(nil)))
}
