package calendar

import (
	"context"
	"fmt"
	"time"

	"basegraph.app/convene/internal/model"
)

// StaticEvent is a fixed busy block, as written in the participants file.
type StaticEvent struct {
	Start     string   `yaml:"start"`
	End       string   `yaml:"end"`
	Summary   string   `yaml:"summary"`
	Attendees []string `yaml:"attendees"`
}

// Static serves a fixed event list. Used for local runs and tests.
type Static struct {
	events []model.CalendarEvent
}

func NewStatic(defs []StaticEvent) (*Static, error) {
	events := make([]model.CalendarEvent, 0, len(defs))
	for i, d := range defs {
		start, err := time.Parse(time.RFC3339, d.Start)
		if err != nil {
			return nil, fmt.Errorf("static event %d start: %w", i, err)
		}
		end, err := time.Parse(time.RFC3339, d.End)
		if err != nil {
			return nil, fmt.Errorf("static event %d end: %w", i, err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("static event %d ends before it starts", i)
		}
		events = append(events, model.NewCalendarEvent(d.Start, d.End, start, end, d.Attendees, d.Summary))
	}
	return &Static{events: events}, nil
}

func (s *Static) Events(_ context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	var out []model.CalendarEvent
	for _, e := range s.events {
		if overlaps(e, start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}
