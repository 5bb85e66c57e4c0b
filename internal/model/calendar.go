package model

import "time"

// SelfAttendee stands in for an event with no recorded attendees.
const SelfAttendee = "SELF"

// CalendarEvent is a normalized calendar entry. StartTime/EndTime keep the
// provider's rendering (an instant, or a bare date for all-day events).
type CalendarEvent struct {
	StartTime    string   `json:"StartTime"`
	EndTime      string   `json:"EndTime"`
	NumAttendees int      `json:"NumAttendees"`
	Attendees    []string `json:"Attendees"`
	Summary      string   `json:"Summary"`

	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// NewCalendarEvent applies the SELF and "Busy" defaults.
func NewCalendarEvent(startRaw, endRaw string, start, end time.Time, attendees []string, summary string) CalendarEvent {
	if len(attendees) == 0 {
		attendees = []string{SelfAttendee}
	}
	if summary == "" {
		summary = "Busy"
	}
	return CalendarEvent{
		StartTime:    startRaw,
		EndTime:      endRaw,
		NumAttendees: len(attendees),
		Attendees:    attendees,
		Summary:      summary,
		Start:        start,
		End:          end,
	}
}
