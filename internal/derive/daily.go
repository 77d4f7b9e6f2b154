package derive

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"caltrack/internal/model"
)

// MaxReportDays bounds the number of days one DailyTotals call covers.
const MaxReportDays = 3660

// DayTotal is the tracked time that falls on one local calendar day.
type DayTotal struct {
	Day     time.Time // local midnight
	Total   time.Duration
	Entries int // entries touching this day
}

// DailyTotals buckets entries into local days between from and to
// (inclusive of both days). An entry crossing midnight is split at the day
// boundary. Days without entries are included with a zero total.
func DailyTotals(entries []model.Entry, from, to time.Time, loc *time.Location) ([]DayTotal, error) {
	if loc == nil {
		loc = time.Local
	}
	if to.Before(from) {
		return nil, errors.New("daily totals: range end is before range start")
	}

	first := midnight(from.In(loc))
	last := midnight(to.In(loc))
	if n := spanDays(first, last); n > MaxReportDays {
		return nil, fmt.Errorf("daily totals: range covers %d days, more than %d", n, MaxReportDays)
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: first,
		Until:   last,
	})
	if err != nil {
		return nil, err
	}
	days := r.All()

	out := make([]DayTotal, 0, len(days))
	for _, day := range days {
		// Re-derive midnight so DST days get their true length.
		dayStart := midnight(day)
		dayEnd := midnight(dayStart.AddDate(0, 0, 1))
		dt := DayTotal{Day: dayStart}
		for _, e := range entries {
			part := clip(e, dayStart, dayEnd)
			if part < 0 {
				continue
			}
			dt.Total += part
			dt.Entries++
		}
		out = append(out, dt)
	}
	return out, nil
}

// spanDays counts calendar days from first to last, both included.
func spanDays(first, last time.Time) int {
	a := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a)/(24*time.Hour)) + 1
}

// clip returns how much of e falls inside [from, to), or -1 when e does not
// touch the window at all.
func clip(e model.Entry, from, to time.Time) time.Duration {
	start, end := e.Start, e.End
	if end.Before(start) {
		return -1
	}
	if !start.Before(to) || end.Before(from) {
		return -1
	}
	if end.Equal(from) && !start.Equal(end) {
		return -1
	}
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	return end.Sub(start)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
