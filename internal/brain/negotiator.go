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
	"basegraph.app/convene/internal/timewindow"
)

const (
	negotiationFallbackConfidence = 0.7
	negotiationDefaultConfidence  = 0.5
	negotiationDefaultHour        = 14
)

// Negotiator picks one participant's preferred slot given peer samples.
type Negotiator struct {
	stage
}

func NewNegotiator(c Completer, cfg Config, obs metrics.Observer) *Negotiator {
	cfg = cfg.withDefaults()
	return &Negotiator{stage: newStage(PhaseNegotiate, c, cfg.NegotiateMaxTokens, 0.2, obs)}
}

func (n *Negotiator) Negotiate(ctx context.Context, email string, own []model.CandidateSlot, peers [][]model.CandidateSlot, w timewindow.Window, duration time.Duration) model.NegotiationResult {
	ctx = withPhase(ctx, PhaseNegotiate, "convene.brain.negotiator")
	sc := logger.StartSpan(ctx, "brain.negotiate", trace.WithAttributes(
		attribute.String("participant", email),
		attribute.Int("own_slots", len(own)),
		attribute.Int("peers", len(peers))))
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	result, err := n.negotiateWithCompletion(ctx, email, own, peers, duration)
	if err != nil {
		n.fellBack(ctx, sc, start, err)
		return fallbackNegotiation(own, w, duration)
	}
	n.succeeded(ctx, start)
	return result
}

func (n *Negotiator) negotiateWithCompletion(ctx context.Context, email string, own []model.CandidateSlot, peers [][]model.CandidateSlot, duration time.Duration) (model.NegotiationResult, error) {
	content, err := n.complete(ctx, llm.Prompt("", negotiationPrompt(email, own, peers)), "negotiation_pick", pickSchema)
	if err != nil {
		return model.NegotiationResult{}, err
	}
	answer, err := llm.Decode[slotAnswer](content)
	if err != nil {
		return model.NegotiationResult{}, err
	}
	return answer.pick(duration)
}

func fallbackNegotiation(own []model.CandidateSlot, w timewindow.Window, duration time.Duration) model.NegotiationResult {
	if len(own) > 0 {
		return model.NegotiationResult{
			TimeSlot:   model.SlotFrom(own[0].Start, duration),
			Confidence: negotiationFallbackConfidence,
		}
	}
	return model.NegotiationResult{
		TimeSlot:   model.SlotFrom(timewindow.At(w.Start, negotiationDefaultHour, 0), duration),
		Confidence: negotiationDefaultConfidence,
	}
}
