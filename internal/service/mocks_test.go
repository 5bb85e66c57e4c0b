package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/internal/calendar"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/queue"
	"basegraph.app/convene/internal/store"
	. "github.com/onsi/gomega"
)

type mockCompleter struct {
	completeFn func(ctx context.Context, req llm.Request) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return "", llm.ErrUnavailable
}

type mockProducer struct {
	mu        sync.Mutex
	publishFn func(ctx context.Context, msg queue.MeetingScheduled) error
	published []queue.MeetingScheduled
}

func (m *mockProducer) Publish(ctx context.Context, msg queue.MeetingScheduled) error {
	m.mu.Lock()
	m.published = append(m.published, msg)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, msg)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }

type mockScheduleLog struct {
	recordFn func(ctx context.Context, e store.ScheduleEntry) error
	entries  []store.ScheduleEntry
}

func (m *mockScheduleLog) Record(ctx context.Context, e store.ScheduleEntry) error {
	m.entries = append(m.entries, e)
	if m.recordFn != nil {
		return m.recordFn(ctx, e)
	}
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	requests []metrics.RequestSummary
}

func (r *recordingObserver) ObservePhase(string, metrics.Outcome, time.Duration) {}

func (r *recordingObserver) ObserveRequest(s metrics.RequestSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, s)
}

type failingCalendar struct{}

func (failingCalendar) Events(context.Context, time.Time, time.Time) ([]model.CalendarEvent, error) {
	return nil, &calendar.ProviderError{Kind: calendar.KindGoogle, Err: errors.New("token expired")}
}

var testAssignments = map[string]string{
	"userone.amd@gmail.com":   "Asia/Kolkata",
	"usertwo.amd@gmail.com":   "America/New_York",
	"userthree.amd@gmail.com": "Asia/Kolkata",
}

func testDirectory(calendars map[string]calendar.Provider) *participant.Directory {
	var agents []*participant.Agent
	for email, zone := range testAssignments {
		agents = append(agents, &participant.Agent{Email: email, Timezone: zone, Calendar: calendars[email]})
	}
	dir, err := participant.NewDirectory(testAssignments, agents)
	Expect(err).NotTo(HaveOccurred())
	return dir
}

func quickRequest() model.ScheduleRequest {
	return model.ScheduleRequest{
		RequestID: "6118b54f-907b-4451-8d48-dd13d76033a5",
		Datetime:  "13-07-2025T14:00:00",
		Location:  "IISc Bangalore",
		From:      "userone.amd@gmail.com",
		Attendees: []model.AttendeeRef{
			{Email: "usertwo.amd@gmail.com"},
		},
		Subject:      "Agentic AI Project Status Update",
		EmailContent: "Quick 30 minute test",
	}
}
