package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

const suggestedHour = 16

var (
	errZeroInstant   = errors.New("proposed instant is zero")
	errTimeNotStated = errors.New("proposed instant was not stated in the request")
)

type zoneAssignment struct {
	email string
	zone  string
	loc   *time.Location
	err   error
}

// TimezoneVerifier checks a proposed instant against every participant's
// business hours. The assignment table is fixed at construction.
type TimezoneVerifier struct {
	assignments map[string]string
	zones       []zoneAssignment
}

func NewTimezoneVerifier(assignments map[string]string) *TimezoneVerifier {
	v := &TimezoneVerifier{assignments: make(map[string]string, len(assignments))}
	for email, zone := range assignments {
		v.assignments[email] = zone
		loc, err := time.LoadLocation(zone)
		if err != nil {
			err = fmt.Errorf("loading timezone %q for %s: %w", zone, email, err)
		}
		v.zones = append(v.zones, zoneAssignment{email: email, zone: zone, loc: loc, err: err})
	}
	sort.Slice(v.zones, func(i, j int) bool { return v.zones[i].email < v.zones[j].email })
	return v
}

// Verify never fails: when the check cannot be computed it assumes the
// proposal is compatible.
func (v *TimezoneVerifier) Verify(ctx context.Context, meeting model.MeetingInfo) model.TimezoneVerificationResult {
	ctx = withPhase(ctx, PhaseTimezone, "convene.brain.timezone")
	sc := logger.StartSpan(ctx, "brain.verify_timezone", trace.WithAttributes(attribute.Int("participants", len(v.zones))))
	defer sc.End()
	ctx = sc.Context()

	result, err := v.verify(meeting)
	if err != nil {
		slog.WarnContext(ctx, "timezone verification not computed, assuming compatible", "error", err)
		sc.MarkFallback("not_computed")
		return v.assumeCompatible(meeting.PreferredDatetime)
	}

	slog.InfoContext(ctx, "timezone verification complete",
		"compatible", result.Compatible,
		"conflicts", len(result.Conflicts))
	return result
}

func (v *TimezoneVerifier) verify(meeting model.MeetingInfo) (model.TimezoneVerificationResult, error) {
	proposed := meeting.PreferredDatetime
	if proposed.IsZero() {
		return model.TimezoneVerificationResult{}, errZeroInstant
	}
	if !meeting.TimeStated {
		return model.TimezoneVerificationResult{}, errTimeNotStated
	}

	var conflicts []model.TimezoneConflict
	for _, z := range v.zones {
		if z.err != nil {
			return model.TimezoneVerificationResult{}, z.err
		}
		local := proposed.In(z.loc)
		if timewindow.IsBusinessHour(local.Hour()) {
			continue
		}
		conflicts = append(conflicts, model.TimezoneConflict{
			Agent:     z.email,
			Timezone:  z.zone,
			LocalTime: local.Format(timewindow.LocalTimeLayout),
			Issue:     fmt.Sprintf("Outside business hours (%d:00)", local.Hour()),
		})
	}

	result := model.TimezoneVerificationResult{
		Compatible:  len(conflicts) == 0,
		Conflicts:   conflicts,
		Summary:     fmt.Sprintf("%d agents compatible, %d agents have conflicts", len(v.zones)-len(conflicts), len(conflicts)),
		Assignments: v.table(),
		Method:      model.VerificationDirect,
	}
	if result.Compatible {
		result.Recommendation = "Proceed with scheduling"
	} else {
		result.SuggestedAlternative = timewindow.At(proposed, suggestedHour, 0)
		result.Recommendation = "Reschedule to suggested time"
	}
	return result, nil
}

func (v *TimezoneVerifier) assumeCompatible(proposed time.Time) model.TimezoneVerificationResult {
	return model.TimezoneVerificationResult{
		Compatible:           true,
		SuggestedAlternative: proposed,
		Summary:              "Fallback: Assuming compatible",
		Recommendation:       "Proceed with scheduling",
		Assignments:          v.table(),
		Method:               model.VerificationFallback,
	}
}

// Assignments returns a copy of the participant→timezone table.
func (v *TimezoneVerifier) Assignments() map[string]string {
	return v.table()
}

func (v *TimezoneVerifier) table() map[string]string {
	out := make(map[string]string, len(v.assignments))
	for k, z := range v.assignments {
		out[k] = z
	}
	return out
}
