package model

import (
	"encoding/json"
	"time"

	"basegraph.app/convene/internal/timewindow"
)

// VerificationMethod records whether the timezone check was computed or assumed.
type VerificationMethod string

const (
	VerificationDirect   VerificationMethod = "Direct timezone calculation"
	VerificationFallback VerificationMethod = "Ultimate fallback"
)

type TimezoneConflict struct {
	Agent     string `json:"agent"`
	Timezone  string `json:"timezone"`
	LocalTime string `json:"local_time"`
	Issue     string `json:"issue"`
}

type TimezoneVerificationResult struct {
	Compatible           bool
	Conflicts            []TimezoneConflict
	SuggestedAlternative time.Time
	Summary              string
	Recommendation       string
	Assignments          map[string]string
	Method               VerificationMethod
}

type timezoneVerificationJSON struct {
	Compatible           bool               `json:"compatible"`
	Conflicts            []TimezoneConflict `json:"timezone_conflicts"`
	SuggestedAlternative string             `json:"suggested_alternative"`
	Summary              string             `json:"timezone_summary"`
	Recommendation       string             `json:"recommendation"`
	Assignments          map[string]string  `json:"timezone_assignments"`
	Method               VerificationMethod `json:"verification_method"`
}

func (r TimezoneVerificationResult) MarshalJSON() ([]byte, error) {
	conflicts := r.Conflicts
	if conflicts == nil {
		conflicts = []TimezoneConflict{}
	}
	out := timezoneVerificationJSON{
		Compatible:     r.Compatible,
		Conflicts:      conflicts,
		Summary:        r.Summary,
		Recommendation: r.Recommendation,
		Assignments:    r.Assignments,
		Method:         r.Method,
	}
	if !r.SuggestedAlternative.IsZero() {
		out.SuggestedAlternative = timewindow.Format(r.SuggestedAlternative)
	}
	return json.Marshal(out)
}
