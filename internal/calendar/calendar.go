// Package calendar reads a participant's busy time from an external calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

// Kind selects the calendar backend for a participant.
type Kind string

const (
	KindGoogle Kind = "google"
	KindICal   Kind = "ical"
	KindStatic Kind = "static"
	KindNone   Kind = "none"
)

// ErrProvider matches every *ProviderError via errors.Is.
var ErrProvider = errors.New("calendar provider error")

// ProviderError wraps a failed calendar read.
type ProviderError struct {
	Kind Kind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s calendar: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Provider lists events overlapping [start, end].
type Provider interface {
	Events(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
}

// Empty is a provider with no events.
type Empty struct{}

func (Empty) Events(context.Context, time.Time, time.Time) ([]model.CalendarEvent, error) {
	return nil, nil
}

// BusyInterval is one (start, end) pair handed to the availability prompt.
type BusyInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Busy projects events to their raw start/end rendering.
func Busy(events []model.CalendarEvent) []BusyInterval {
	busy := make([]BusyInterval, 0, len(events))
	for _, e := range events {
		busy = append(busy, BusyInterval{Start: e.StartTime, End: e.EndTime})
	}
	return busy
}

// parseEventTime reads an RFC 3339 instant or, for all-day events, a bare date in
// the origin zone.
func parseEventTime(dateTime, date string) (string, time.Time, error) {
	if dateTime != "" {
		t, err := time.Parse(time.RFC3339, dateTime)
		return dateTime, t, err
	}
	if date != "" {
		t, err := time.ParseInLocation(timewindow.DateLayout, date, timewindow.Origin)
		return date, t, err
	}
	return "", time.Time{}, errors.New("event has neither dateTime nor date")
}

func overlaps(e model.CalendarEvent, start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}
