// Package derive computes read-only views over a store snapshot. Nothing
// here mutates its input.
package derive

import (
	"fmt"
	"time"

	"caltrack/internal/model"
	"caltrack/internal/store"
)

// Ordered returns the entries of s in store order.
func Ordered(s store.Store) []model.Entry {
	return s.Entries()
}

// Between returns the entries overlapping [from, to], keeping their order.
func Between(entries []model.Entry, from, to time.Time) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if overlaps(e.Start, e.End, from, to) {
			out = append(out, e)
		}
	}
	return out
}

// Total sums the durations of entries. Inverted ranges count as zero.
func Total(entries []model.Entry) time.Duration {
	var sum time.Duration
	for _, e := range entries {
		sum += e.Duration()
	}
	return sum
}

// Readout formats d as HH:MM:SS. Negative durations read as 00:00:00 and
// hours keep growing past 99.
func Readout(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
