// Package ics converts between calendar entries and iCalendar payloads.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "caltrack/internal/log"
	"caltrack/internal/model"
)

// ErrEmpty is returned for an empty payload.
var ErrEmpty = errors.New("empty ICS body")

// ParseDrafts reads every VEVENT in body and returns one draft per usable
// event, in file order. Events without a start, or ending before they
// start, are logged and skipped. A missing end yields a zero-length draft.
func ParseDrafts(body []byte) ([]model.Draft, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmpty
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	drafts := make([]model.Draft, 0)
	for _, ve := range cal.Events() {
		d, perr := parseVEvent(ve)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics vevent skipped", "uid", uidOf(ve), "reason", perr.Error())
			continue
		}
		drafts = append(drafts, d)
	}

	appLog.Info("ics parse completed", "event_count", len(drafts))
	return drafts, nil
}

func parseVEvent(ve *ical.VEvent) (model.Draft, error) {
	var d model.Draft

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		d.Title = p.Value
	}

	start, err := eventTime(ve, ical.ComponentPropertyDtStart, func() (time.Time, error) { return ve.GetStartAt() })
	if err != nil {
		return d, errors.New("missing or invalid DTSTART")
	}
	d.Start = start

	end, err := eventTime(ve, ical.ComponentPropertyDtEnd, func() (time.Time, error) { return ve.GetEndAt() })
	if err != nil {
		end = start
	}
	d.End = end

	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// eventTime uses the library's timezone-aware getter first and falls back to
// the raw value for date-only and floating forms.
func eventTime(ve *ical.VEvent, prop ical.ComponentProperty, get func() (time.Time, error)) (time.Time, error) {
	if t, err := get(); err == nil && !t.IsZero() {
		return t, nil
	}
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, errors.New("property not present")
	}
	return parseICSTime(p.Value)
}

func uidOf(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}

// parseICSTime parses a basic ICS date or date-time value. Floating and
// date-only values are read in the local zone.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}
