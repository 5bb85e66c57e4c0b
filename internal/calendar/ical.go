package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

// ICal reads a published iCalendar feed (e.g. a "secret address in iCal format").
// Recurring events are not expanded; only concrete VEVENTs count as busy.
type ICal struct {
	url    string
	client *http.Client
}

func NewICal(feedURL string, timeout time.Duration) *ICal {
	if timeout <= 0 {
		timeout = defaultGoogleTimeout
	}
	return &ICal{url: feedURL, client: &http.Client{Timeout: timeout}}
}

func (c *ICal) Events(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &ProviderError{Kind: KindICal, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Kind: KindICal, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Kind: KindICal, Err: fmt.Errorf("fetch feed: status=%d", resp.StatusCode)}
	}

	events, err := decodeFeed(resp.Body, start, end)
	if err != nil {
		return nil, &ProviderError{Kind: KindICal, Err: err}
	}
	return events, nil
}

func decodeFeed(r io.Reader, start, end time.Time) ([]model.CalendarEvent, error) {
	decoder := ical.NewDecoder(r)
	var events []model.CalendarEvent

	for {
		cal, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			ev, ok := parseComponent(comp)
			if !ok || !overlaps(ev, start, end) {
				continue
			}
			events = append(events, ev)
		}
	}

	return events, nil
}

func parseComponent(comp *ical.Component) (model.CalendarEvent, bool) {
	if status := comp.Props.Get(ical.PropStatus); status != nil && strings.EqualFold(status.Value, "CANCELLED") {
		return model.CalendarEvent{}, false
	}

	startRaw, start, ok := propTime(comp.Props.Get(ical.PropDateTimeStart))
	if !ok {
		return model.CalendarEvent{}, false
	}
	endRaw, end, ok := propTime(comp.Props.Get(ical.PropDateTimeEnd))
	if !ok {
		return model.CalendarEvent{}, false
	}

	var summary string
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		summary = p.Value
	}

	var attendees []string
	for _, p := range comp.Props.Values(ical.PropAttendee) {
		email := strings.TrimPrefix(strings.TrimPrefix(p.Value, "mailto:"), "MAILTO:")
		if email != "" {
			attendees = append(attendees, email)
		}
	}

	return model.NewCalendarEvent(startRaw, endRaw, start, end, attendees, summary), true
}

// propTime renders DATE values as YYYY-MM-DD and DATE-TIME values as RFC 3339 in
// the origin zone. Floating times are read in the origin zone too.
func propTime(prop *ical.Prop) (string, time.Time, bool) {
	if prop == nil {
		return "", time.Time{}, false
	}
	t, err := prop.DateTime(timewindow.Origin)
	if err != nil {
		return "", time.Time{}, false
	}
	if prop.ValueType() == ical.ValueDate {
		return t.Format(timewindow.DateLayout), t, true
	}
	return timewindow.Format(t), t, true
}
