package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caltrack/internal/model"
)

var t0 = time.Date(2023, 5, 2, 9, 0, 0, 0, time.UTC)

func TestExportImportRoundTrip(t *testing.T) {
	entries := []model.Entry{
		{ID: 1, Title: "Standup", Start: t0, End: t0.Add(15 * time.Minute)},
		{ID: 7, Title: "Deep work", Start: t0.Add(time.Hour), End: t0.Add(3 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, entries, t0))
	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, UID(7))

	drafts, err := ParseDrafts(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	for i, d := range drafts {
		assert.Equal(t, entries[i].Title, d.Title)
		assert.True(t, entries[i].Start.Equal(d.Start), "start %d", i)
		assert.True(t, entries[i].End.Equal(d.End), "end %d", i)
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, nil, t0))
	assert.Contains(t, buf.String(), "END:VCALENDAR")
	assert.NotContains(t, buf.String(), "BEGIN:VEVENT")
}

const sample = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:a
DTSTAMP:20230501T000000Z
SUMMARY:Review
DTSTART:20230501T100000Z
DTEND:20230501T110000Z
END:VEVENT
BEGIN:VEVENT
UID:b
DTSTAMP:20230501T000000Z
SUMMARY:No end
DTSTART:20230501T120000Z
END:VEVENT
BEGIN:VEVENT
UID:c
DTSTAMP:20230501T000000Z
SUMMARY:Backwards
DTSTART:20230501T150000Z
DTEND:20230501T140000Z
END:VEVENT
BEGIN:VEVENT
UID:d
DTSTAMP:20230501T000000Z
SUMMARY:No start
END:VEVENT
END:VCALENDAR
`

func TestParseDraftsSkipsUnusableEvents(t *testing.T) {
	body := strings.ReplaceAll(sample, "\n", "\r\n")
	drafts, err := ParseDrafts([]byte(body))
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, "Review", drafts[0].Title)
	assert.Equal(t, time.Hour, drafts[0].End.Sub(drafts[0].Start))

	assert.Equal(t, "No end", drafts[1].Title)
	assert.True(t, drafts[1].Start.Equal(drafts[1].End))
}

func TestParseDraftsEmpty(t *testing.T) {
	_, err := ParseDrafts([]byte("  \n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseICSTimeForms(t *testing.T) {
	utc, err := parseICSTime("20250101T090000Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), utc)

	local, err := parseICSTime("20250101T090000")
	require.NoError(t, err)
	assert.Equal(t, 9, local.Hour())
	assert.Equal(t, time.Local, local.Location())

	date, err := parseICSTime("20250101")
	require.NoError(t, err)
	assert.Equal(t, 0, date.Hour())

	_, err = parseICSTime("")
	assert.Error(t, err)
}
