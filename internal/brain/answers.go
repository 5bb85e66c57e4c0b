package brain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

// flexInt accepts 45 and "45"; small models quote numbers often.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	*f = flexInt(int(v))
	return nil
}

type meetingAnswer struct {
	DurationMinutes   flexInt `json:"duration_minutes" jsonschema:"minimum=1"`
	Urgency           string  `json:"urgency" jsonschema:"enum=urgent,enum=high,enum=medium,enum=low"`
	PreferredDatetime string  `json:"preferred_datetime" jsonschema:"description=RFC 3339 instant with offset"`
}

// slotAnswer is a slot as exchanged with the completion service. Availability
// answers carry a score, negotiation and decision answers a confidence.
type slotAnswer struct {
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Score      *float64 `json:"score,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

var (
	meetingSchema = llm.GenerateSchema[meetingAnswer]()
	pickSchema    = llm.GenerateSchema[slotAnswer]()
)

func candidateWire(s model.CandidateSlot) slotAnswer {
	score := s.Score
	return slotAnswer{Start: timewindow.Format(s.Start), End: timewindow.Format(s.End), Score: &score}
}

func candidatesWire(slots []model.CandidateSlot, limit int) []slotAnswer {
	if len(slots) > limit {
		slots = slots[:limit]
	}
	out := make([]slotAnswer, 0, len(slots))
	for _, s := range slots {
		out = append(out, candidateWire(s))
	}
	return out
}

func resultsWire(results []model.NegotiationResult, limit int) []slotAnswer {
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]slotAnswer, 0, len(results))
	for _, r := range results {
		conf := r.Confidence
		out = append(out, slotAnswer{Start: timewindow.Format(r.Start), End: timewindow.Format(r.End), Confidence: &conf})
	}
	return out
}

// pick validates a negotiation or decision answer. The start is trusted, the end
// is rebuilt from the meeting length and the confidence is clamped.
func (a slotAnswer) pick(duration time.Duration) (model.NegotiationResult, error) {
	start, err := timewindow.Parse(a.Start)
	if err != nil {
		return model.NegotiationResult{}, fmt.Errorf("%w: start: %v", errInvalidAnswer, err)
	}
	if a.Confidence == nil {
		return model.NegotiationResult{}, fmt.Errorf("%w: missing confidence", errInvalidAnswer)
	}
	return model.NegotiationResult{
		TimeSlot:   model.SlotFrom(start, duration),
		Confidence: timewindow.Clamp01(*a.Confidence),
	}, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
