package brain

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
)

const decisionDefaultConfidence = 0.6

// Decider arbitrates the negotiation results into one slot.
type Decider struct {
	stage
}

func NewDecider(c Completer, cfg Config, obs metrics.Observer) *Decider {
	cfg = cfg.withDefaults()
	return &Decider{stage: newStage(PhaseDecide, c, cfg.DecideMaxTokens, 0.1, obs)}
}

// Decide returns the chosen slot. results must be in participant request order;
// the fallback breaks confidence ties by that order.
func (d *Decider) Decide(ctx context.Context, results []model.NegotiationResult, meeting model.MeetingInfo) model.NegotiationResult {
	ctx = withPhase(ctx, PhaseDecide, "convene.brain.decider")
	sc := logger.StartSpan(ctx, "brain.decide", trace.WithAttributes(attribute.Int("results", len(results))))
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	decision, err := d.decideWithCompletion(ctx, results, meeting)
	if err != nil {
		d.fellBack(ctx, sc, start, err)
		return fallbackDecision(results, meeting)
	}
	d.succeeded(ctx, start)
	return decision
}

func (d *Decider) decideWithCompletion(ctx context.Context, results []model.NegotiationResult, meeting model.MeetingInfo) (model.NegotiationResult, error) {
	content, err := d.complete(ctx, llm.Prompt("", decisionPrompt(meeting, results)), "final_decision", pickSchema)
	if err != nil {
		return model.NegotiationResult{}, err
	}
	answer, err := llm.Decode[slotAnswer](content)
	if err != nil {
		return model.NegotiationResult{}, err
	}
	return answer.pick(meeting.Duration())
}

func fallbackDecision(results []model.NegotiationResult, meeting model.MeetingInfo) model.NegotiationResult {
	if len(results) == 0 {
		return model.NegotiationResult{
			TimeSlot:   model.SlotFrom(meeting.PreferredDatetime, meeting.Duration()),
			Confidence: decisionDefaultConfidence,
		}
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return best
}
