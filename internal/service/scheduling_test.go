package service_test

import (
	"context"
	"encoding/json"
	"errors"

	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/calendar"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/queue"
	"basegraph.app/convene/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SchedulingService", func() {
	var (
		ctx         context.Context
		completer   *mockCompleter
		producer    *mockProducer
		scheduleLog *mockScheduleLog
		observer    *recordingObserver
		calendars   map[string]calendar.Provider
		svc         service.SchedulingService
	)

	BeforeEach(func() {
		ctx = context.Background()
		completer = &mockCompleter{}
		producer = &mockProducer{}
		scheduleLog = &mockScheduleLog{}
		observer = &recordingObserver{}
		calendars = nil
	})

	JustBeforeEach(func() {
		svc = service.NewServices(service.Deps{
			Completer:   completer,
			Directory:   testDirectory(calendars),
			Brain:       brain.DefaultConfig(),
			Observer:    observer,
			Producer:    producer,
			ScheduleLog: scheduleLog,
		}).Scheduling()
	})

	Context("when the completion service is unreachable", func() {
		It("returns a complete output built from the fallbacks", func() {
			result := svc.Schedule(ctx, quickRequest())

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Fallbacks).To(Equal(6))

			processed := result.Processed
			Expect(processed.Start).To(Equal("2025-07-17T10:00:00+05:30"))
			Expect(processed.End).To(Equal("2025-07-17T10:30:00+05:30"))
			Expect(processed.DurationMins).To(Equal("30"))
			Expect(processed.Attendees).To(Equal([]model.AttendeeRef{{Email: "usertwo.amd@gmail.com"}}))

			output := result.Output
			Expect(output.EventStart).To(Equal("2025-07-17T10:00:00+05:30"))
			Expect(output.DurationMins).To(Equal("30"))
			Expect(output.MetaData.TimezoneVerification.Method).To(Equal(model.VerificationFallback))
			Expect(output.MetaData.TimezoneSummary).To(Equal("Fallback: Assuming compatible"))
			Expect(output.MetaData.TimezoneAssignments).To(Equal(testAssignments))
			Expect(output.MetaData.SchedulingStep).To(Equal("Boss Agent verified timezone compatibility before scheduling"))
			Expect(output.MetaData.Optimization).To(Equal("Parallel execution of original AI logic"))
			Expect(output.MetaData.ProcessingTimeSeconds).To(BeNumerically(">=", 0))

			Expect(output.Attendees).To(HaveLen(2))
			Expect(output.Attendees[0].Email).To(Equal("userone.amd@gmail.com"))
			Expect(output.Attendees[1].Email).To(Equal("usertwo.amd@gmail.com"))
			for _, a := range output.Attendees {
				Expect(a.Events).To(HaveLen(1))
				Expect(a.Events[0].Summary).To(Equal("Agentic AI Project Status Update"))
				Expect(a.Events[0].Attendees).To(Equal([]string{"userone.amd@gmail.com", "usertwo.amd@gmail.com"}))
				Expect(a.Events[0].NumAttendees).To(Equal(2))
			}
		})

		It("serializes the output with the wire field names", func() {
			result := svc.Schedule(ctx, quickRequest())

			raw, err := json.Marshal(result.OutputBody())
			Expect(err).NotTo(HaveOccurred())

			var body map[string]any
			Expect(json.Unmarshal(raw, &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("Request_id", "6118b54f-907b-4451-8d48-dd13d76033a5"))
			Expect(body).To(HaveKeyWithValue("Duration_mins", "30"))
			Expect(body).To(HaveKeyWithValue("EventEnd", "2025-07-17T10:30:00+05:30"))

			meta := body["MetaData"].(map[string]any)
			verification := meta["timezone_verification"].(map[string]any)
			Expect(verification).To(HaveKeyWithValue("verification_method", "Ultimate fallback"))
			Expect(verification).To(HaveKeyWithValue("compatible", true))
			Expect(verification).To(HaveKeyWithValue("timezone_conflicts", BeEmpty()))

			attendees := body["Attendees"].([]any)
			event := attendees[0].(map[string]any)["events"].([]any)[0].(map[string]any)
			Expect(event).To(HaveKeyWithValue("StartTime", "2025-07-17T10:00:00+05:30"))
			Expect(event).To(HaveKeyWithValue("NumAttendees", BeNumerically("==", 2)))
			Expect(event).To(HaveKeyWithValue("Summary", "Agentic AI Project Status Update"))
		})

		It("records the decision on the side channels", func() {
			result := svc.Schedule(ctx, quickRequest())

			Expect(scheduleLog.entries).To(HaveLen(1))
			Expect(scheduleLog.entries[0].ID).To(Equal(result.ScheduleID))
			Expect(scheduleLog.entries[0].Method).To(Equal("Ultimate fallback"))
			Expect(scheduleLog.entries[0].Participants).To(Equal([]string{"userone.amd@gmail.com", "usertwo.amd@gmail.com"}))

			Expect(producer.published).To(HaveLen(1))
			Expect(producer.published[0].Attendees).To(Equal([]string{"usertwo.amd@gmail.com"}))
			Expect(producer.published[0].Start).To(Equal("2025-07-17T10:00:00+05:30"))

			Expect(observer.requests).To(HaveLen(1))
			Expect(observer.requests[0].Success).To(BeTrue())
			Expect(observer.requests[0].DurationMins).To(Equal("30"))
			Expect(observer.requests[0].Fallbacks).To(Equal(6))
		})
	})

	Context("when side channels fail", func() {
		BeforeEach(func() {
			producer.publishFn = func(context.Context, queue.MeetingScheduled) error { return errors.New("redis down") }
		})

		It("still returns the schedule", func() {
			result := svc.Schedule(ctx, quickRequest())

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Output.EventStart).To(Equal("2025-07-17T10:00:00+05:30"))
		})
	})

	Context("when the timezone check finds a conflict", func() {
		It("reports it and schedules on the suggested day", func() {
			req := quickRequest()
			req.EmailContent = "Let's sync tomorrow at 2pm"

			result := svc.Schedule(ctx, req)

			verification := result.Output.MetaData.TimezoneVerification
			Expect(verification.Compatible).To(BeFalse())
			Expect(verification.Method).To(Equal(model.VerificationDirect))
			Expect(result.Output.MetaData.TimezoneSummary).To(Equal("2 agents compatible, 1 agents have conflicts"))
			Expect(result.Output.EventStart).To(Equal("2025-07-14T10:00:00+05:30"))
			Expect(observer.requests[0].TimezoneConflict).To(BeTrue())
		})
	})

	Context("when participant calendars have events", func() {
		BeforeEach(func() {
			static, err := calendar.NewStatic([]calendar.StaticEvent{
				{Start: "2025-07-17T09:00:00+05:30", End: "2025-07-17T09:30:00+05:30", Summary: "Standup", Attendees: []string{"userone.amd@gmail.com", "userthree.amd@gmail.com"}},
				{Start: "2025-07-18T09:00:00+05:30", End: "2025-07-18T09:30:00+05:30"},
			})
			Expect(err).NotTo(HaveOccurred())
			calendars = map[string]calendar.Provider{
				"userone.amd@gmail.com": static,
				"usertwo.amd@gmail.com": failingCalendar{},
			}
		})

		It("lists the decision day's events before the new meeting", func() {
			result := svc.Schedule(ctx, quickRequest())

			first := result.Output.Attendees[0]
			Expect(first.Events).To(HaveLen(2))
			Expect(first.Events[0].Summary).To(Equal("Standup"))
			Expect(first.Events[0].NumAttendees).To(Equal(2))
			Expect(first.Events[1].Summary).To(Equal("Agentic AI Project Status Update"))

			second := result.Output.Attendees[1]
			Expect(second.Events).To(HaveLen(1))
		})
	})

	DescribeTable("rejects invalid envelopes with the error shape",
		func(mutate func(*model.ScheduleRequest), message string) {
			req := quickRequest()
			mutate(&req)

			result := svc.Schedule(ctx, req)

			Expect(result.Err).To(MatchError(service.ErrInvalidRequest))
			Expect(result.Err.Error()).To(ContainSubstring(message))
			Expect(result.ProcessedBody()).To(Equal(model.ErrorRecord{Error: result.Err.Error()}))
			Expect(result.OutputBody()).To(Equal(model.ErrorRecord{Error: result.Err.Error()}))
			Expect(producer.published).To(BeEmpty())
			Expect(scheduleLog.entries).To(BeEmpty())
			Expect(observer.requests).To(HaveLen(1))
			Expect(observer.requests[0].Success).To(BeFalse())
		},
		Entry("missing request id", func(r *model.ScheduleRequest) { r.RequestID = "" }, "Request_id"),
		Entry("missing content and sender", func(r *model.ScheduleRequest) { r.EmailContent = ""; r.From = " " }, "From, EmailContent"),
		Entry("unparseable datetime", func(r *model.ScheduleRequest) { r.Datetime = "2025-07-13 14:00" }, "parsing request datetime"),
	)
})
