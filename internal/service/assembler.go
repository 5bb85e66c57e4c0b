package service

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/timewindow"
)

const (
	defaultMeetingSummary = "Meeting"
	schedulingStep        = "Boss Agent verified timezone compatibility before scheduling"
	optimizationNote      = "Parallel execution of original AI logic"
)

// OutputAssembler builds the processed and output records for a decided meeting.
type OutputAssembler struct {
	directory       *participant.Directory
	calendarTimeout time.Duration
	maxParallel     int
}

func NewOutputAssembler(dir *participant.Directory, cfg brain.Config) *OutputAssembler {
	if cfg.CalendarTimeout <= 0 {
		cfg.CalendarTimeout = brain.DefaultConfig().CalendarTimeout
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = brain.DefaultConfig().MaxParallel
	}
	return &OutputAssembler{
		directory:       dir,
		calendarTimeout: cfg.CalendarTimeout,
		maxParallel:     cfg.MaxParallel,
	}
}

// Assemble renders both records. participants is the organizer followed by the
// attendees as written in the request.
func (a *OutputAssembler) Assemble(ctx context.Context, req model.ScheduleRequest, participants []string, out brain.Outcome, elapsed func() time.Duration) (*model.ProcessedRecord, *model.OutputRecord) {
	start := timewindow.Format(out.Decision.Start)
	end := timewindow.Format(out.Decision.End)
	duration := strconv.Itoa(out.Meeting.DurationMinutes)

	processed := &model.ProcessedRecord{
		RequestID:    req.RequestID,
		Datetime:     req.Datetime,
		Location:     req.Location,
		From:         req.From,
		Attendees:    attendeeRefs(req.Attendees),
		Subject:      req.Subject,
		EmailContent: req.EmailContent,
		Start:        start,
		End:          end,
		DurationMins: duration,
	}

	meeting := newMeetingEvent(req.Subject, participants, out.Decision)
	calendars := a.dayCalendars(ctx, participants, timewindow.DaySpan(out.Decision.Start), meeting)

	verification := out.Decision.TimezoneVerification
	output := &model.OutputRecord{
		RequestID:    req.RequestID,
		Datetime:     req.Datetime,
		Location:     req.Location,
		From:         req.From,
		Attendees:    calendars,
		Subject:      req.Subject,
		EmailContent: req.EmailContent,
		EventStart:   start,
		EventEnd:     end,
		DurationMins: duration,
		MetaData: model.OutputMetaData{
			TimezoneVerification:  verification,
			TimezoneSummary:       verification.Summary,
			TimezoneAssignments:   verification.Assignments,
			SchedulingStep:        schedulingStep,
			ProcessingTimeSeconds: roundSeconds(elapsed()),
			Optimization:          optimizationNote,
		},
	}
	return processed, output
}

// dayCalendars fetches every participant's events for the decision day in
// parallel and appends the new meeting to each list. Order follows participants.
func (a *OutputAssembler) dayCalendars(ctx context.Context, participants []string, day timewindow.Window, meeting model.CalendarEvent) []model.AttendeeCalendar {
	calendars := make([]model.AttendeeCalendar, len(participants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxParallel)
	for i, email := range participants {
		g.Go(func() error {
			events := a.dayEvents(gctx, email, day)
			calendars[i] = model.AttendeeCalendar{Email: email, Events: append(events, meeting)}
			return nil
		})
	}
	_ = g.Wait()
	return calendars
}

func (a *OutputAssembler) dayEvents(ctx context.Context, email string, day timewindow.Window) []model.CalendarEvent {
	agent, ok := a.directory.Lookup(email)
	if !ok || agent.Calendar == nil {
		return []model.CalendarEvent{}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Participant: logger.Ptr(email)})
	calCtx, cancel := context.WithTimeout(ctx, a.calendarTimeout)
	defer cancel()

	events, err := agent.Calendar.Events(calCtx, day.Start, day.End)
	if err != nil {
		slog.WarnContext(ctx, "day calendar read failed, listing only the new meeting", "error", err)
		return []model.CalendarEvent{}
	}
	return events
}

func newMeetingEvent(subject string, participants []string, decision model.FinalDecision) model.CalendarEvent {
	if subject == "" {
		subject = defaultMeetingSummary
	}
	attendees := append([]string(nil), participants...)
	return model.CalendarEvent{
		StartTime:    timewindow.Format(decision.Start),
		EndTime:      timewindow.Format(decision.End),
		NumAttendees: len(attendees),
		Attendees:    attendees,
		Summary:      subject,
		Start:        decision.Start,
		End:          decision.End,
	}
}

func attendeeRefs(refs []model.AttendeeRef) []model.AttendeeRef {
	if refs == nil {
		return []model.AttendeeRef{}
	}
	return refs
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
