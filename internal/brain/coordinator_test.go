package brain_test

import (
	"context"
	"strings"
	"time"

	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/calendar"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/timewindow"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func defaultDirectory(calendars map[string]calendar.Provider) *participant.Directory {
	var agents []*participant.Agent
	for email, zone := range defaultAssignments {
		agents = append(agents, &participant.Agent{Email: email, Timezone: zone, Calendar: calendars[email]})
	}
	dir, err := participant.NewDirectory(defaultAssignments, agents)
	Expect(err).NotTo(HaveOccurred())
	return dir
}

func countContaining(prompts []string, sub string) int {
	n := 0
	for _, p := range prompts {
		if strings.Contains(p, sub) {
			n++
		}
	}
	return n
}

var _ = Describe("Coordinator", func() {
	var (
		ctx  context.Context
		mock *mockCompleter
		obs  *recordingObserver
		base time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = &mockCompleter{}
		obs = &recordingObserver{}
		base = time.Date(2025, 7, 13, 14, 0, 0, 0, timewindow.Origin)
	})

	Context("when the completion service is unreachable", func() {
		It("still produces a decision from the fallbacks", func() {
			coord := brain.NewCoordinator(mock, defaultDirectory(nil), brain.DefaultConfig(), obs)
			meeting := brain.ParseHeuristically("Quick 30 minute test", base)
			tctx, tally := brain.WithFallbackTally(ctx)

			out := coord.Coordinate(tctx, []string{"userone.amd@gmail.com", "usertwo.amd@gmail.com"}, meeting)

			Expect(out.Decision.TimezoneVerification.Method).To(Equal(model.VerificationFallback))
			Expect(out.Decision.TimezoneVerification.Compatible).To(BeTrue())
			Expect(out.Rewindowed).To(BeFalse())
			Expect(out.Window.StartString()).To(Equal("2025-07-17T00:00:00+05:30"))
			Expect(out.Window.EndString()).To(Equal("2025-07-31T23:59:59+05:30"))
			Expect(timewindow.Format(out.Decision.Start)).To(Equal("2025-07-17T10:00:00+05:30"))
			Expect(timewindow.Format(out.Decision.End)).To(Equal("2025-07-17T10:30:00+05:30"))
			Expect(out.Decision.Confidence).To(Equal(0.7))

			// two availability, two negotiations, one decision
			Expect(tally.Count()).To(Equal(5))
			Expect(obs.count(brain.PhaseAvailability, metrics.OutcomeFallback)).To(Equal(2))
			Expect(obs.count(brain.PhaseNegotiate, metrics.OutcomeFallback)).To(Equal(2))
			Expect(obs.count(brain.PhaseDecide, metrics.OutcomeFallback)).To(Equal(1))
		})
	})

	Context("when a participant is outside business hours", func() {
		It("moves the meeting to the suggested alternative before searching", func() {
			coord := brain.NewCoordinator(mock, defaultDirectory(nil), brain.DefaultConfig(), nil)
			meeting := statedAt(time.Date(2025, 7, 17, 14, 0, 0, 0, timewindow.Origin))
			meeting.Urgency = model.UrgencyUrgent

			out := coord.Coordinate(ctx, []string{"userone.amd@gmail.com", "usertwo.amd@gmail.com"}, meeting)

			Expect(out.Rewindowed).To(BeTrue())
			Expect(out.Decision.TimezoneVerification.Compatible).To(BeFalse())
			Expect(timewindow.Format(out.Meeting.PreferredDatetime)).To(Equal("2025-07-17T16:00:00+05:30"))
			Expect(out.Window.EndString()).To(Equal("2025-07-20T23:59:59+05:30"))
		})
	})

	Context("when the completion service answers", func() {
		BeforeEach(func() {
			mock.completeFn = replyByPrompt(map[string]string{
				"Find 30min slots": `[{"start":"2025-07-18T11:00:00+05:30","end":"2025-07-18T11:30:00+05:30","score":0.9},
					{"start":"2025-07-18T15:00:00+05:30","end":"2025-07-18T15:30:00+05:30","score":0.8}]`,
				"negotiation.":         `{"start":"2025-07-18T11:00:00+05:30","end":"2025-07-18T11:30:00+05:30","confidence":0.85}`,
				"Boss final decision.": `{"start":"2025-07-18T15:00:00+05:30","end":"2025-07-18T15:30:00+05:30","confidence":0.9}`,
			})
		})

		It("uses the decision and skips participants without an agent", func() {
			coord := brain.NewCoordinator(mock, defaultDirectory(nil), brain.DefaultConfig(), obs)
			meeting := statedAt(time.Date(2025, 7, 18, 11, 0, 0, 0, timewindow.Origin))

			out := coord.Coordinate(ctx, []string{
				"userone.amd@gmail.com",
				"stranger@example.com",
				"USERTHREE.amd@gmail.com",
				"userone.amd@gmail.com",
			}, meeting)

			Expect(timewindow.Format(out.Decision.Start)).To(Equal("2025-07-18T15:00:00+05:30"))
			Expect(out.Decision.Confidence).To(Equal(0.9))

			prompts := mock.userPrompts()
			Expect(countContaining(prompts, "Find 30min slots")).To(Equal(2))
			Expect(countContaining(prompts, "negotiation.")).To(Equal(2))
			Expect(countContaining(prompts, "Boss final decision.")).To(Equal(1))
			Expect(obs.count(brain.PhaseDecide, metrics.OutcomeCompleted)).To(Equal(1))
		})

		It("recovers a participant whose availability task panics", func() {
			dir := defaultDirectory(map[string]calendar.Provider{"usertwo.amd@gmail.com": panickingCalendar{}})
			coord := brain.NewCoordinator(mock, dir, brain.DefaultConfig(), nil)
			meeting := statedAt(time.Date(2025, 7, 18, 11, 0, 0, 0, timewindow.Origin))

			out := coord.Coordinate(ctx, []string{"userone.amd@gmail.com", "usertwo.amd@gmail.com"}, meeting)

			Expect(timewindow.Format(out.Decision.Start)).To(Equal("2025-07-18T15:00:00+05:30"))
			Expect(countContaining(mock.userPrompts(), "negotiation.")).To(Equal(2))
		})
	})

	It("defaults a missing preferred instant to a day from now", func() {
		coord := brain.NewCoordinator(nil, defaultDirectory(nil), brain.Config{MaxParallel: 1}, nil)

		out := coord.Coordinate(ctx, []string{"userone.amd@gmail.com"}, model.MeetingInfo{DurationMinutes: 30, Urgency: model.UrgencyMedium})

		tomorrow := timewindow.StartOfDay(time.Now().AddDate(0, 0, 1))
		Expect(out.Window.Start.Equal(tomorrow)).To(BeTrue())
		Expect(out.Decision.End.Sub(out.Decision.Start)).To(Equal(30 * time.Minute))
	})
})
