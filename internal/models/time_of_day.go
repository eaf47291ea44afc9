package models

import (
	"fmt"
	"time"
)

// GridMinutes is the resolution every LocalTimeOfDay must land on.
const GridMinutes = 15

// Weekday mirrors time.Weekday but is named in the domain so recurring
// templates don't carry a dependency on civil-time quirks beyond what they
// need (Sunday == 0, same as the standard library).
type Weekday = time.Weekday

// LocalTimeOfDay is a wall-clock time within a day, HH:mm, always on the
// 15-minute grid described by spec.md §4.7/P3.
type LocalTimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:mm" and validates the 15-minute grid.
func ParseTimeOfDay(s string) (LocalTimeOfDay, error) {
	var t LocalTimeOfDay
	if _, err := fmt.Sscanf(s, "%02d:%02d", &t.Hour, &t.Minute); err != nil {
		return LocalTimeOfDay{}, ErrInvalidTimeSlot
	}
	if !t.OnGrid() {
		return LocalTimeOfDay{}, ErrInvalidTimeSlot
	}
	return t, nil
}

// OnGrid reports P3: minutes ∈ {0,15,30,45} and the value is a real time
// of day.
func (t LocalTimeOfDay) OnGrid() bool {
	if t.Hour < 0 || t.Hour > 23 {
		return false
	}
	if t.Minute != 0 && t.Minute != 15 && t.Minute != 30 && t.Minute != 45 {
		return false
	}
	return true
}

// FitsDuration reports whether a session of durationMinutes starting at t
// stays within the same day (spec.md §4.7: "60-minute lesson cannot cross
// midnight").
func (t LocalTimeOfDay) FitsDuration(durationMinutes int) bool {
	return t.Hour*60+t.Minute+durationMinutes <= 24*60
}

// MinutesSinceMidnight returns the offset used for overlap comparisons.
func (t LocalTimeOfDay) MinutesSinceMidnight() int {
	return t.Hour*60 + t.Minute
}

// String renders "HH:mm".
func (t LocalTimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Add returns t shifted by delta minutes, wrapping within the same day is
// not performed — callers that shift across midnight must check OnGrid /
// FitsDuration on the result themselves.
func (t LocalTimeOfDay) Add(deltaMinutes int) LocalTimeOfDay {
	total := t.MinutesSinceMidnight() + deltaMinutes
	return LocalTimeOfDay{Hour: total / 60, Minute: total % 60}
}

// WireTimeLayout is the ISO-8601-with-milliseconds layout spec.md §6
// mandates for every Instant on the wire.
const WireTimeLayout = "2006-01-02T15:04:05.000Z"

// FormatInstant renders t per the wire format.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(WireTimeLayout)
}

// ParseInstant parses the wire format, rejecting anything else as
// ErrInvalidDate so callers don't need to translate time.Parse errors.
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(WireTimeLayout, s)
	if err != nil {
		// Accept the RFC3339 variant too (no forced milliseconds) since
		// most JSON clients emit that by default.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, ErrInvalidDate
		}
	}
	return t.UTC(), nil
}
