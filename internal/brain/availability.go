package brain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/calendar"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/timewindow"
)

// AvailabilityFinder proposes scored candidate slots for one participant.
type AvailabilityFinder struct {
	stage
	calendarTimeout time.Duration
}

func NewAvailabilityFinder(c Completer, cfg Config, obs metrics.Observer) *AvailabilityFinder {
	cfg = cfg.withDefaults()
	return &AvailabilityFinder{
		stage:           newStage(PhaseAvailability, c, cfg.AvailabilityMaxTokens, 0.1, obs),
		calendarTimeout: cfg.CalendarTimeout,
	}
}

// Find returns candidates sorted by descending score. The result is never empty.
func (f *AvailabilityFinder) Find(ctx context.Context, agent *participant.Agent, w timewindow.Window, duration time.Duration) []model.CandidateSlot {
	ctx = withPhase(ctx, PhaseAvailability, "convene.brain.availability")
	sc := logger.StartSpan(ctx, "brain.find_availability", trace.WithAttributes(attribute.String("participant", agent.Email)))
	defer sc.End()
	ctx = sc.Context()

	busy := f.busy(ctx, agent, w)

	start := time.Now()
	slots, err := f.findWithCompletion(ctx, w, duration, busy)
	if err != nil {
		f.fellBack(ctx, sc, start, err)
		return fallbackCandidates(w, duration)
	}
	f.succeeded(ctx, start)
	return slots
}

// busy reads the participant's calendar. A failed read counts as no busy time.
func (f *AvailabilityFinder) busy(ctx context.Context, agent *participant.Agent, w timewindow.Window) []calendar.BusyInterval {
	if agent.Calendar == nil {
		return calendar.Busy(nil)
	}
	calCtx, cancel := context.WithTimeout(ctx, f.calendarTimeout)
	defer cancel()

	events, err := agent.Calendar.Events(calCtx, w.Start, w.End)
	if err != nil {
		slog.WarnContext(ctx, "calendar read failed, treating as free", "error", err)
		return calendar.Busy(nil)
	}
	slog.DebugContext(ctx, "calendar read", "events", len(events))
	return calendar.Busy(events)
}

func (f *AvailabilityFinder) findWithCompletion(ctx context.Context, w timewindow.Window, duration time.Duration, busy []calendar.BusyInterval) ([]model.CandidateSlot, error) {
	content, err := f.complete(ctx, llm.Prompt("", availabilityPrompt(int(duration/time.Minute), w, busy)), "", nil)
	if err != nil {
		return nil, err
	}

	answers, err := llm.Decode[[]slotAnswer](content)
	if err != nil {
		return nil, err
	}

	slots := make([]model.CandidateSlot, 0, len(answers))
	for _, a := range answers {
		start, err := timewindow.Parse(a.Start)
		if err != nil {
			continue
		}
		score := 0.0
		if a.Score != nil {
			score = timewindow.Clamp01(*a.Score)
		}
		slots = append(slots, model.CandidateSlot{TimeSlot: model.SlotFrom(start, duration), Score: score})
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: no usable slots in %d entries", errInvalidAnswer, len(answers))
	}

	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Score > slots[j].Score })
	return slots, nil
}

func fallbackCandidates(w timewindow.Window, duration time.Duration) []model.CandidateSlot {
	generated := timewindow.FallbackSlots(w.Start, duration)
	slots := make([]model.CandidateSlot, 0, len(generated))
	for _, g := range generated {
		slots = append(slots, model.CandidateSlot{TimeSlot: model.TimeSlot{Start: g.Start, End: g.End}, Score: g.Score})
	}
	return slots
}
