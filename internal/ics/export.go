package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"caltrack/internal/model"
)

const productID = "-//caltrack//caltrack//EN"

// UID returns the stable iCalendar UID for an entry.
func UID(id int64) string {
	return fmt.Sprintf("%d@caltrack", id)
}

// Export writes entries as a VCALENDAR, one VEVENT per entry in the given
// order. Times are written in UTC. stamp becomes every event's DTSTAMP.
func Export(w io.Writer, entries []model.Entry, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range entries {
		ev := cal.AddEvent(UID(e.ID))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(e.Start.UTC())
		ev.SetEndAt(e.End.UTC())
		ev.SetSummary(e.Title)
	}

	return cal.SerializeTo(w)
}
