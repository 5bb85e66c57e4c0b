package brain

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/timewindow"
)

// Outcome is everything the protocol decided for one request.
type Outcome struct {
	// Meeting is the parsed request, possibly moved to the suggested alternative.
	Meeting  model.MeetingInfo
	Decision model.FinalDecision
	Window   timewindow.Window
	// Rewindowed is set when a timezone conflict moved the preferred instant.
	Rewindowed bool
}

// Coordinator drives verification, availability, negotiation and decision for
// one request. It holds no per-request state and is safe for concurrent use.
type Coordinator struct {
	directory    *participant.Directory
	verifier     *TimezoneVerifier
	availability *AvailabilityFinder
	negotiator   *Negotiator
	decider      *Decider
	maxParallel  int
	now          func() time.Time
}

func NewCoordinator(c Completer, dir *participant.Directory, cfg Config, obs metrics.Observer) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		directory:    dir,
		verifier:     NewTimezoneVerifier(dir.Assignments()),
		availability: NewAvailabilityFinder(c, cfg, obs),
		negotiator:   NewNegotiator(c, cfg, obs),
		decider:      NewDecider(c, cfg, obs),
		maxParallel:  cfg.MaxParallel,
		now:          time.Now,
	}
}

// Verifier exposes the timezone gate for callers that only need the check.
func (c *Coordinator) Verifier() *TimezoneVerifier {
	return c.verifier
}

// Coordinate runs the protocol after parsing. participants is the organizer
// followed by attendees; duplicates keep their first position.
func (c *Coordinator) Coordinate(ctx context.Context, participants []string, meeting model.MeetingInfo) Outcome {
	participants = dedupe(participants)

	sc := logger.StartSpan(ctx, "brain.coordinate", trace.WithAttributes(
		attribute.Int("participants", len(participants)),
		attribute.String("urgency", string(meeting.Urgency))))
	defer sc.End()
	ctx = sc.Context()

	if meeting.PreferredDatetime.IsZero() {
		meeting.PreferredDatetime = c.now().In(timewindow.Origin).AddDate(0, 0, 1)
	}

	verification := c.verifier.Verify(ctx, meeting)
	out := Outcome{Meeting: meeting}
	if !verification.Compatible && !verification.SuggestedAlternative.IsZero() {
		slog.InfoContext(ctx, "timezone conflict, moving to suggested alternative",
			"proposed", timewindow.Format(meeting.PreferredDatetime),
			"suggested", timewindow.Format(verification.SuggestedAlternative))
		out.Meeting.PreferredDatetime = verification.SuggestedAlternative
		out.Rewindowed = true
	}
	out.Window = timewindow.SearchWindow(out.Meeting.PreferredDatetime, string(out.Meeting.Urgency))
	duration := out.Meeting.Duration()

	candidates := c.findSlots(ctx, participants, out.Window, duration)
	results := c.negotiate(ctx, participants, candidates, out.Window, duration)
	chosen := c.decider.Decide(ctx, results, out.Meeting)

	out.Decision = model.FinalDecision{
		TimeSlot:             chosen.TimeSlot,
		Confidence:           chosen.Confidence,
		TimezoneVerification: verification,
	}

	slog.InfoContext(ctx, "coordination complete",
		"start", timewindow.Format(chosen.Start),
		"end", timewindow.Format(chosen.End),
		"confidence", chosen.Confidence,
		"negotiation_results", len(results))
	return out
}

// findSlots gathers candidates for every participant. Unknown participants get none.
func (c *Coordinator) findSlots(ctx context.Context, participants []string, w timewindow.Window, duration time.Duration) [][]model.CandidateSlot {
	return fanOut(ctx, len(participants), c.maxParallel,
		func(ctx context.Context, i int) []model.CandidateSlot {
			agent, ok := c.directory.Lookup(participants[i])
			if !ok {
				slog.DebugContext(ctx, "no agent for participant", "participant", participants[i])
				return nil
			}
			return c.availability.Find(participantContext(ctx, agent.Email), agent, w, duration)
		},
		func(i int) []model.CandidateSlot {
			if _, ok := c.directory.Lookup(participants[i]); !ok {
				return nil
			}
			return fallbackCandidates(w, duration)
		})
}

// negotiate runs one negotiation per known participant; results keep request order.
func (c *Coordinator) negotiate(ctx context.Context, participants []string, candidates [][]model.CandidateSlot, w timewindow.Window, duration time.Duration) []model.NegotiationResult {
	var known []int
	for i, email := range participants {
		if _, ok := c.directory.Lookup(email); ok {
			known = append(known, i)
		}
	}

	return fanOut(ctx, len(known), c.maxParallel,
		func(ctx context.Context, k int) model.NegotiationResult {
			i := known[k]
			email := participants[i]
			return c.negotiator.Negotiate(participantContext(ctx, email), email, candidates[i], peerSamples(candidates, i), w, duration)
		},
		func(k int) model.NegotiationResult {
			return fallbackNegotiation(candidates[known[k]], w, duration)
		})
}

// peerSamples takes up to promptPeerLimit other participants with candidates,
// in request order.
func peerSamples(candidates [][]model.CandidateSlot, self int) [][]model.CandidateSlot {
	peers := make([][]model.CandidateSlot, 0, promptPeerLimit)
	for j, slots := range candidates {
		if j == self || len(slots) == 0 {
			continue
		}
		if len(slots) > promptPeerSlots {
			slots = slots[:promptPeerSlots]
		}
		peers = append(peers, slots)
		if len(peers) == promptPeerLimit {
			break
		}
	}
	return peers
}

func participantContext(ctx context.Context, email string) context.Context {
	return logger.WithLogFields(ctx, logger.LogFields{Participant: logger.Ptr(email)})
}

func dedupe(participants []string) []string {
	seen := make(map[string]struct{}, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
