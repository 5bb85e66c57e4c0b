package brain_test

import (
	"context"
	"time"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func slotAt(day, hour int, score float64) model.CandidateSlot {
	start := time.Date(2025, 7, day, hour, 0, 0, 0, timewindow.Origin)
	return model.CandidateSlot{TimeSlot: model.SlotFrom(start, 30*time.Minute), Score: score}
}

func resultAt(day, hour int, confidence float64) model.NegotiationResult {
	start := time.Date(2025, 7, day, hour, 0, 0, 0, timewindow.Origin)
	return model.NegotiationResult{TimeSlot: model.SlotFrom(start, 30*time.Minute), Confidence: confidence}
}

var _ = Describe("Negotiator", func() {
	var (
		ctx        context.Context
		mock       *mockCompleter
		negotiator *brain.Negotiator
		window     timewindow.Window
		own        []model.CandidateSlot
		peers      [][]model.CandidateSlot
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = &mockCompleter{}
		negotiator = brain.NewNegotiator(mock, brain.DefaultConfig(), nil)
		window = timewindow.SearchWindow(time.Date(2025, 7, 17, 14, 0, 0, 0, timewindow.Origin), "medium")
		own = []model.CandidateSlot{slotAt(17, 11, 0.9), slotAt(17, 12, 0.8), slotAt(17, 15, 0.7), slotAt(18, 10, 0.6)}
		peers = [][]model.CandidateSlot{{slotAt(17, 12, 0.9)}}
	})

	It("uses the completion pick with a normalized end and clamped confidence", func() {
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `{"start":"2025-07-17T12:00:00+05:30","end":"2025-07-17T14:00:00+05:30","confidence":1.3}`, nil
		}

		result := negotiator.Negotiate(ctx, "userone.amd@gmail.com", own, peers, window, 30*time.Minute)

		Expect(timewindow.Format(result.Start)).To(Equal("2025-07-17T12:00:00+05:30"))
		Expect(timewindow.Format(result.End)).To(Equal("2025-07-17T12:30:00+05:30"))
		Expect(result.Confidence).To(Equal(1.0))
	})

	It("shows only the top three own slots and the peer samples", func() {
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `{"start":"2025-07-17T12:00:00+05:30","confidence":0.8}`, nil
		}

		negotiator.Negotiate(ctx, "userone.amd@gmail.com", own, peers, window, 30*time.Minute)

		prompt := mock.lastUser()
		Expect(prompt).To(HavePrefix("Agent userone.amd@gmail.com negotiation."))
		Expect(prompt).To(ContainSubstring("2025-07-17T15:00:00+05:30"))
		Expect(prompt).NotTo(ContainSubstring("2025-07-18T10:00:00+05:30"))
		Expect(prompt).To(ContainSubstring(`Others: [[{"start":"2025-07-17T12:00:00+05:30","end":"2025-07-17T12:30:00+05:30","score":0.9}]]`))
		Expect(*mock.requests[0].Temperature).To(BeNumerically("~", 0.2))
		Expect(mock.requests[0].MaxTokens).To(Equal(150))
	})

	It("falls back to the first own candidate at 0.7", func() {
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `{"start":"2025-07-17T12:00:00+05:30"}`, nil
		}

		result := negotiator.Negotiate(ctx, "userone.amd@gmail.com", own, peers, window, 30*time.Minute)

		Expect(result.TimeSlot).To(Equal(own[0].TimeSlot))
		Expect(result.Confidence).To(Equal(0.7))
	})

	It("falls back to 14:00 on the window start date without candidates", func() {
		result := negotiator.Negotiate(ctx, "userone.amd@gmail.com", nil, nil, window, 30*time.Minute)

		Expect(timewindow.Format(result.Start)).To(Equal("2025-07-17T14:00:00+05:30"))
		Expect(timewindow.Format(result.End)).To(Equal("2025-07-17T14:30:00+05:30"))
		Expect(result.Confidence).To(Equal(0.5))
	})
})

var _ = Describe("Decider", func() {
	var (
		ctx     context.Context
		mock    *mockCompleter
		decider *brain.Decider
		meeting model.MeetingInfo
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = &mockCompleter{}
		decider = brain.NewDecider(mock, brain.DefaultConfig(), nil)
		meeting = statedAt(time.Date(2025, 7, 17, 14, 0, 0, 0, timewindow.Origin))
	})

	It("uses the completion decision", func() {
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return "```json\n{\"start\":\"2025-07-17T11:00:00+05:30\",\"end\":\"2025-07-17T11:30:00+05:30\",\"confidence\":0.95}\n```", nil
		}

		decision := decider.Decide(ctx, []model.NegotiationResult{resultAt(17, 11, 0.8), resultAt(17, 12, 0.7)}, meeting)

		Expect(timewindow.Format(decision.Start)).To(Equal("2025-07-17T11:00:00+05:30"))
		Expect(decision.Confidence).To(Equal(0.95))
		Expect(mock.lastUser()).To(ContainSubstring("Duration: 30mins\nUrgency: medium"))
	})

	It("shows at most three results", func() {
		mock.completeFn = func(context.Context, llm.Request) (string, error) {
			return `{"start":"2025-07-17T11:00:00+05:30","confidence":0.9}`, nil
		}

		decider.Decide(ctx, []model.NegotiationResult{
			resultAt(17, 10, 0.5), resultAt(17, 11, 0.5), resultAt(17, 12, 0.5), resultAt(17, 13, 0.5),
		}, meeting)

		Expect(mock.lastUser()).To(ContainSubstring("2025-07-17T12:00:00+05:30"))
		Expect(mock.lastUser()).NotTo(ContainSubstring("2025-07-17T13:00:00+05:30"))
	})

	It("falls back to the most confident result, first seen on ties", func() {
		results := []model.NegotiationResult{resultAt(17, 10, 0.7), resultAt(17, 11, 0.9), resultAt(17, 12, 0.9)}

		decision := decider.Decide(ctx, results, meeting)

		Expect(decision).To(Equal(results[1]))
	})

	It("synthesizes the preferred slot at 0.6 without results", func() {
		decision := decider.Decide(ctx, nil, meeting)

		Expect(decision.Start.Equal(meeting.PreferredDatetime)).To(BeTrue())
		Expect(decision.End.Sub(decision.Start)).To(Equal(30 * time.Minute))
		Expect(decision.Confidence).To(Equal(0.6))
	})
})
