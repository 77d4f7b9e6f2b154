package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryWireShape(t *testing.T) {
	raw := `{"id":1,"title":"A","dateStart":"2023-01-01T00:00:00Z","dateEnd":"2023-01-01T01:00:00Z"}`

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, "A", e.Title)
	assert.Equal(t, time.Hour, e.Duration())

	out, err := json.Marshal(Draft{Title: "A", Start: e.Start, End: e.End})
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"id"`)
	assert.Contains(t, string(out), `"dateStart":"2023-01-01T00:00:00Z"`)
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	start := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, Entry{Start: start, End: start}.Validate())
	assert.ErrorIs(t, Entry{Start: start, End: start.Add(-time.Second)}.Validate(), ErrInvalidRange)
	assert.ErrorIs(t, Draft{Start: start, End: start.Add(-time.Second)}.Validate(), ErrInvalidRange)
	assert.Zero(t, Entry{Start: start, End: start.Add(-time.Hour)}.Duration())
}

func TestEqualComparesInstants(t *testing.T) {
	utc := time.Date(2023, 1, 1, 9, 0, 0, 0, time.UTC)
	seoul := utc.In(time.FixedZone("KST", 9*3600))

	a := Entry{ID: 1, Title: "x", Start: utc, End: utc}
	b := Entry{ID: 1, Title: "x", Start: seoul, End: seoul}
	assert.True(t, a.Equal(b))

	b.Title = "y"
	assert.False(t, a.Equal(b))
}
