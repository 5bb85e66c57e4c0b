package brain

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

// RequestParser turns free text into MeetingInfo.
type RequestParser struct {
	stage
}

func NewRequestParser(c Completer, cfg Config, obs metrics.Observer) *RequestParser {
	cfg = cfg.withDefaults()
	return &RequestParser{stage: newStage(PhaseParse, c, cfg.ParseMaxTokens, 0.1, obs)}
}

// Parse asks the completion service first and falls back to ParseHeuristically.
// base is the request timestamp; it anchors relative expressions.
func (p *RequestParser) Parse(ctx context.Context, text string, base time.Time) model.MeetingInfo {
	ctx = withPhase(ctx, PhaseParse, "convene.brain.parser")
	sc := logger.StartSpan(ctx, "brain.parse", trace.WithAttributes(attribute.Int("text_length", len(text))))
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	info, err := p.parseWithCompletion(ctx, text, base)
	if err != nil {
		p.fellBack(ctx, sc, start, err)
		return ParseHeuristically(text, base)
	}
	p.succeeded(ctx, start)
	return info
}

func (p *RequestParser) parseWithCompletion(ctx context.Context, text string, base time.Time) (model.MeetingInfo, error) {
	content, err := p.complete(ctx, []llm.Message{
		{Role: "system", Content: parseSystemPrompt},
		{Role: "user", Content: parsePrompt(text, base)},
	}, "meeting_info", meetingSchema)
	if err != nil {
		return model.MeetingInfo{}, err
	}

	answer, err := llm.Decode[meetingAnswer](content)
	if err != nil {
		return model.MeetingInfo{}, err
	}
	return answer.validate()
}

func (a meetingAnswer) validate() (model.MeetingInfo, error) {
	if a.DurationMinutes <= 0 {
		return model.MeetingInfo{}, fmt.Errorf("%w: duration_minutes %d", errInvalidAnswer, a.DurationMinutes)
	}
	urgency, ok := model.ParseUrgency(a.Urgency)
	if !ok {
		return model.MeetingInfo{}, fmt.Errorf("%w: urgency %q", errInvalidAnswer, a.Urgency)
	}
	preferred, err := timewindow.Parse(a.PreferredDatetime)
	if err != nil {
		return model.MeetingInfo{}, fmt.Errorf("%w: preferred_datetime: %v", errInvalidAnswer, err)
	}
	return model.MeetingInfo{
		DurationMinutes:   int(a.DurationMinutes),
		Urgency:           urgency,
		PreferredDatetime: preferred,
		Source:            model.MeetingSourceCompletion,
		TimeStated:        true,
	}, nil
}
