package brain_test

import (
	"context"
	"time"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/calendar"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/timewindow"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AvailabilityFinder", func() {
	var (
		ctx    context.Context
		mock   *mockCompleter
		obs    *recordingObserver
		finder *brain.AvailabilityFinder
		agent  *participant.Agent
		window timewindow.Window
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = &mockCompleter{}
		obs = &recordingObserver{}
		finder = brain.NewAvailabilityFinder(mock, brain.DefaultConfig(), obs)
		agent = &participant.Agent{Email: "userone.amd@gmail.com", Timezone: "Asia/Kolkata", Calendar: calendar.Empty{}}
		window = timewindow.SearchWindow(time.Date(2025, 7, 17, 14, 0, 0, 0, timewindow.Origin), "urgent")
	})

	It("returns answered slots sorted by score with normalized ends", func() {
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `[
				{"start":"2025-07-17T11:00:00+05:30","end":"2025-07-17T13:00:00+05:30","score":0.6},
				{"start":"2025-07-17T10:00:00+05:30","end":"bogus","score":1.4},
				{"start":"garbage","end":"2025-07-17T12:30:00+05:30","score":0.9},
				{"start":"2025-07-18T09:00:00+05:30","score":0.6}
			]`, nil
		}

		slots := finder.Find(ctx, agent, window, 30*time.Minute)

		Expect(slots).To(HaveLen(3))
		Expect(timewindow.Format(slots[0].Start)).To(Equal("2025-07-17T10:00:00+05:30"))
		Expect(slots[0].Score).To(Equal(1.0))
		Expect(timewindow.Format(slots[1].Start)).To(Equal("2025-07-17T11:00:00+05:30"))
		Expect(timewindow.Format(slots[2].Start)).To(Equal("2025-07-18T09:00:00+05:30"))
		for _, s := range slots {
			Expect(s.End.Sub(s.Start)).To(Equal(30 * time.Minute))
		}
		Expect(obs.count(brain.PhaseAvailability, metrics.OutcomeCompleted)).To(Equal(1))
	})

	It("lists busy time from the calendar in the prompt", func() {
		static, err := calendar.NewStatic([]calendar.StaticEvent{
			{Start: "2025-07-17T10:00:00+05:30", End: "2025-07-17T11:00:00+05:30", Summary: "Standup"},
		})
		Expect(err).NotTo(HaveOccurred())
		agent.Calendar = static
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `[{"start":"2025-07-17T12:00:00+05:30","end":"2025-07-17T12:30:00+05:30","score":0.9}]`, nil
		}

		finder.Find(ctx, agent, window, 30*time.Minute)

		prompt := mock.lastUser()
		Expect(prompt).To(ContainSubstring("Find 30min slots between 2025-07-17T00:00:00+05:30 and 2025-07-20T23:59:59+05:30."))
		Expect(prompt).To(ContainSubstring(`Busy: [{"start":"2025-07-17T10:00:00+05:30","end":"2025-07-17T11:00:00+05:30"}]`))
		Expect(*mock.requests[0].Temperature).To(BeNumerically("~", 0.1))
		Expect(mock.requests[0].MaxTokens).To(Equal(300))
	})

	It("treats a failing calendar as free time", func() {
		agent.Calendar = failingCalendar{}
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `[{"start":"2025-07-17T12:00:00+05:30","end":"2025-07-17T12:30:00+05:30","score":0.9}]`, nil
		}

		slots := finder.Find(ctx, agent, window, 30*time.Minute)

		Expect(slots).To(HaveLen(1))
		Expect(mock.lastUser()).To(ContainSubstring("Busy: []"))
	})

	It("repairs a truncated slot list", func() {
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `[{"start":"2025-07-17T15:00:00+05:30","end":"2025-07-17T15:30:00+05:30","score":0.75}`, nil
		}

		slots := finder.Find(ctx, agent, window, 30*time.Minute)

		Expect(slots).To(HaveLen(1))
		Expect(slots[0].Score).To(Equal(0.75))
	})

	DescribeTable("generates the five fallback slots",
		func(content string, err error) {
			mock.completeFn = func(context.Context, llm.Request) (string, error) { return content, err }

			slots := finder.Find(ctx, agent, window, 60*time.Minute)

			Expect(slots).To(HaveLen(5))
			for i, s := range slots {
				Expect(s.Start.Hour()).To(Equal(10 + i))
				Expect(s.Start.Day()).To(Equal(17))
				Expect(s.End.Sub(s.Start)).To(Equal(time.Hour))
			}
			Expect(slots[0].Score).To(Equal(0.8))
			Expect(slots[4].Score).To(Equal(0.4))
			Expect(obs.count(brain.PhaseAvailability, metrics.OutcomeFallback)).To(Equal(1))
		},
		Entry("unavailable", "", llm.ErrUnavailable),
		Entry("no valid entries", `[{"start":"soon","score":0.9}]`, nil),
		Entry("empty list", `[]`, nil),
		Entry("object instead of list", `{"start":"2025-07-17T10:00:00+05:30"}`, nil),
	)
})
