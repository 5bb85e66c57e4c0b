// Package timewindow holds the pure date/time arithmetic used by the coordinator:
// the fixed origin offset, business-hour checks, urgency search windows and the
// deterministic fallback slot generator.
package timewindow

import (
	"fmt"
	"strings"
	"time"
)

const (
	// RequestLayout is the layout of the request envelope's Datetime field.
	RequestLayout = "02-01-2006T15:04:05"
	// DateLayout is used for date-only calendar values and prompts.
	DateLayout = "2006-01-02"
	// LocalTimeLayout renders a participant's local wall clock in conflict reports.
	LocalTimeLayout = "03:04 PM"

	// BusinessStartHour is inclusive.
	BusinessStartHour = 9
	// BusinessEndHour is exclusive: a meeting starting at 18:00 local is out of hours.
	BusinessEndHour = 18

	// DefaultSearchDays applies to unknown urgency labels.
	DefaultSearchDays = 14
)

// Origin is the fixed UTC+05:30 offset every instant on the wire is expressed in.
var Origin = time.FixedZone("+05:30", 5*60*60+30*60)

var searchDays = map[string]int{
	"urgent": 3,
	"high":   7,
	"medium": 14,
	"low":    21,
}

// SearchDays maps an urgency label to the number of days the scheduler looks ahead.
func SearchDays(urgency string) int {
	if days, ok := searchDays[strings.ToLower(urgency)]; ok {
		return days
	}
	return DefaultSearchDays
}

// Format renders t in the origin offset, e.g. 2025-07-17T14:00:00+05:30.
func Format(t time.Time) string {
	return t.In(Origin).Format(time.RFC3339)
}

// Parse reads an instant. Values without an offset are read in the origin zone,
// matching how the completion service is told to answer.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(Origin), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, Origin); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time value %q", s)
}

// ParseRequest reads the request envelope's DD-MM-YYYYTHH:MM:SS timestamp in the origin zone.
func ParseRequest(s string) (time.Time, error) {
	t, err := time.ParseInLocation(RequestLayout, strings.TrimSpace(s), Origin)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing request datetime %q: %w", s, err)
	}
	return t, nil
}

// IsBusinessHour reports whether hour falls in [09:00, 18:00).
func IsBusinessHour(hour int) bool {
	return hour >= BusinessStartHour && hour < BusinessEndHour
}

// StartOfDay returns midnight of t's date in the origin zone.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Origin)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Origin)
}

// EndOfDay returns 23:59:59 of t's date in the origin zone.
func EndOfDay(t time.Time) time.Time {
	t = t.In(Origin)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, Origin)
}

// At returns t's origin date with the wall clock set to hour:minute.
func At(t time.Time, hour, minute int) time.Time {
	t = t.In(Origin)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, Origin)
}

// Window is a search range [Start, End] covering whole origin days.
type Window struct {
	Start time.Time
	End   time.Time
}

// StartString renders the window start on the wire.
func (w Window) StartString() string { return Format(w.Start) }

// EndString renders the window end on the wire.
func (w Window) EndString() string { return Format(w.End) }

// SearchWindow spans from the start of from's date to the end of the date
// SearchDays(urgency) days later.
func SearchWindow(from time.Time, urgency string) Window {
	days := SearchDays(urgency)
	return Window{
		Start: StartOfDay(from),
		End:   EndOfDay(from.In(Origin).AddDate(0, 0, days)),
	}
}

// DaySpan is the single-day window around t.
func DaySpan(t time.Time) Window {
	return Window{Start: StartOfDay(t), End: EndOfDay(t)}
}

// Slot is a generated candidate with an availability score.
type Slot struct {
	Start time.Time
	End   time.Time
	Score float64
}

const (
	fallbackSlotCount = 5
	fallbackFirstHour = 10
	fallbackTopScore  = 0.8
	fallbackScoreStep = 0.1
)

// FallbackSlots generates five slots on day's date starting at 10:00, 11:00, ... 14:00,
// each duration long, scored 0.8, 0.7, ... 0.4. Busy time is deliberately ignored.
func FallbackSlots(day time.Time, duration time.Duration) []Slot {
	slots := make([]Slot, 0, fallbackSlotCount)
	for i := 0; i < fallbackSlotCount; i++ {
		start := At(day, fallbackFirstHour+i, 0)
		slots = append(slots, Slot{
			Start: start,
			End:   start.Add(duration),
			Score: roundScore(fallbackTopScore - float64(i)*fallbackScoreStep),
		})
	}
	return slots
}

// roundScore trims float noise (0.8-0.3 = 0.5000000000000001).
func roundScore(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// Clamp01 bounds a score or confidence to [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
