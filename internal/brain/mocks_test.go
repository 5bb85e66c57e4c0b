package brain_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
)

type mockCompleter struct {
	completeFn func(ctx context.Context, req llm.Request) (string, error)
	callCount  atomic.Int32

	mu       sync.Mutex
	requests []llm.Request
}

func (m *mockCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.completeFn == nil {
		return "", llm.ErrUnavailable
	}
	return m.completeFn(ctx, req)
}

func (m *mockCompleter) lastUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	msgs := m.requests[len(m.requests)-1].Messages
	return msgs[len(msgs)-1].Content
}

func (m *mockCompleter) userPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.requests {
		out = append(out, r.Messages[len(r.Messages)-1].Content)
	}
	return out
}

// replyByPrompt answers with the first reply whose key appears in the user prompt.
func replyByPrompt(replies map[string]string) func(context.Context, llm.Request) (string, error) {
	return func(_ context.Context, req llm.Request) (string, error) {
		user := req.Messages[len(req.Messages)-1].Content
		for key, reply := range replies {
			if strings.Contains(user, key) {
				return reply, nil
			}
		}
		return "", llm.ErrUnavailable
	}
}

type failingCalendar struct{}

func (failingCalendar) Events(context.Context, time.Time, time.Time) ([]model.CalendarEvent, error) {
	return nil, errors.New("calendar backend down")
}

type panickingCalendar struct{}

func (panickingCalendar) Events(context.Context, time.Time, time.Time) ([]model.CalendarEvent, error) {
	panic("calendar exploded")
}

type phaseRecord struct {
	phase   string
	outcome metrics.Outcome
}

type recordingObserver struct {
	mu     sync.Mutex
	phases []phaseRecord
}

func (r *recordingObserver) ObservePhase(phase string, outcome metrics.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phaseRecord{phase: phase, outcome: outcome})
}

func (r *recordingObserver) ObserveRequest(metrics.RequestSummary) {}

func (r *recordingObserver) count(phase string, outcome metrics.Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.phases {
		if p.phase == phase && p.outcome == outcome {
			n++
		}
	}
	return n
}
