package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/convene/common/id"
	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/queue"
	"basegraph.app/convene/internal/store"
	"basegraph.app/convene/internal/timewindow"
)

var ErrInvalidRequest = errors.New("invalid request")

// Result carries both representations of one handled request. When Err is set
// both bodies are the error shape.
type Result struct {
	ScheduleID int64
	Processed  *model.ProcessedRecord
	Output     *model.OutputRecord
	Outcome    *brain.Outcome
	Fallbacks  int
	Elapsed    time.Duration
	Err        error
}

func (r *Result) ProcessedBody() any {
	if r.Err != nil {
		return model.ErrorRecord{Error: r.Err.Error()}
	}
	return r.Processed
}

func (r *Result) OutputBody() any {
	if r.Err != nil {
		return model.ErrorRecord{Error: r.Err.Error()}
	}
	return r.Output
}

type SchedulingService interface {
	Schedule(ctx context.Context, req model.ScheduleRequest) *Result
}

type schedulingService struct {
	parser      *brain.RequestParser
	coordinator *brain.Coordinator
	assembler   *OutputAssembler
	observer    metrics.Observer
	producer    queue.Producer
	scheduleLog store.ScheduleLog
	logger      *slog.Logger
}

func NewSchedulingService(
	parser *brain.RequestParser,
	coordinator *brain.Coordinator,
	assembler *OutputAssembler,
	observer metrics.Observer,
	producer queue.Producer,
	scheduleLog store.ScheduleLog,
	logger *slog.Logger,
) SchedulingService {
	if observer == nil {
		observer = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &schedulingService{
		parser:      parser,
		coordinator: coordinator,
		assembler:   assembler,
		observer:    observer,
		producer:    producer,
		scheduleLog: scheduleLog,
		logger:      logger,
	}
}

// Schedule runs the whole pipeline. Only an invalid envelope produces an error
// result; every completion failure is absorbed by a fallback.
func (s *schedulingService) Schedule(ctx context.Context, req model.ScheduleRequest) *Result {
	started := time.Now()
	result := &Result{ScheduleID: id.New()}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RequestID:  logger.Ptr(req.RequestID),
		ScheduleID: logger.Ptr(result.ScheduleID),
		Component:  "convene.service.scheduling",
	})
	sc := logger.StartSpan(ctx, "service.schedule")
	defer sc.End()
	ctx = sc.Context()

	ctx, tally := brain.WithFallbackTally(ctx)

	base, err := validate(req)
	if err != nil {
		sc.RecordError(err)
		s.logger.WarnContext(ctx, "rejecting schedule request", "error", err)
		result.Err = err
		result.Elapsed = time.Since(started)
		s.observe(req, result, started)
		return result
	}

	participants := req.Participants()
	meeting := s.parser.Parse(ctx, req.EmailContent, base)
	s.logger.InfoContext(ctx, "meeting request parsed",
		"duration_minutes", meeting.DurationMinutes,
		"urgency", meeting.Urgency,
		"preferred", timewindow.Format(meeting.PreferredDatetime),
		"source", meeting.Source,
		"participants", len(participants))

	outcome := s.coordinator.Coordinate(ctx, participants, meeting)
	result.Outcome = &outcome
	result.Processed, result.Output = s.assembler.Assemble(ctx, req, participants, outcome, func() time.Duration {
		return time.Since(started)
	})
	result.Fallbacks = tally.Count()
	result.Elapsed = time.Since(started)

	s.logger.InfoContext(ctx, "meeting scheduled",
		"start", result.Output.EventStart,
		"end", result.Output.EventEnd,
		"confidence", outcome.Decision.Confidence,
		"fallbacks", result.Fallbacks,
		"elapsed_ms", result.Elapsed.Milliseconds())

	s.record(ctx, req, participants, result)
	s.observe(req, result, started)
	return result
}

func validate(req model.ScheduleRequest) (time.Time, error) {
	var missing []string
	if strings.TrimSpace(req.RequestID) == "" {
		missing = append(missing, "Request_id")
	}
	if strings.TrimSpace(req.Datetime) == "" {
		missing = append(missing, "Datetime")
	}
	if strings.TrimSpace(req.From) == "" {
		missing = append(missing, "From")
	}
	if strings.TrimSpace(req.EmailContent) == "" {
		missing = append(missing, "EmailContent")
	}
	if len(missing) > 0 {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}

	base, err := timewindow.ParseRequest(req.Datetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return base, nil
}

// record writes the side channels. Failures are logged and never change the result.
func (s *schedulingService) record(ctx context.Context, req model.ScheduleRequest, participants []string, r *Result) {
	decision := r.Outcome.Decision
	verification := decision.TimezoneVerification

	if s.scheduleLog != nil {
		if err := s.scheduleLog.Record(ctx, store.ScheduleEntry{
			ID:           r.ScheduleID,
			RequestID:    req.RequestID,
			Organizer:    req.From,
			Participants: participants,
			Subject:      req.Subject,
			Start:        decision.Start,
			End:          decision.End,
			Confidence:   decision.Confidence,
			Compatible:   verification.Compatible,
			Method:       string(verification.Method),
			Fallbacks:    r.Fallbacks,
			Processing:   r.Elapsed,
		}); err != nil {
			s.logger.ErrorContext(ctx, "schedule log write failed", "error", err)
		}
	}

	if s.producer != nil {
		if err := s.producer.Publish(ctx, queue.MeetingScheduled{
			ScheduleID:   r.ScheduleID,
			RequestID:    req.RequestID,
			From:         req.From,
			Attendees:    participants[1:],
			Subject:      req.Subject,
			Start:        r.Output.EventStart,
			End:          r.Output.EventEnd,
			DurationMins: r.Outcome.Meeting.DurationMinutes,
			Confidence:   decision.Confidence,
			Method:       string(verification.Method),
			Fallbacks:    r.Fallbacks,
		}); err != nil {
			s.logger.ErrorContext(ctx, "publishing scheduling decision failed", "error", err)
		}
	}
}

func (s *schedulingService) observe(req model.ScheduleRequest, r *Result, started time.Time) {
	summary := metrics.RequestSummary{
		RequestID:      req.RequestID,
		From:           req.From,
		Subject:        req.Subject,
		Success:        r.Err == nil,
		ProcessingTime: r.Elapsed,
		Fallbacks:      r.Fallbacks,
		At:             started,
	}
	if r.Err == nil {
		summary.DurationMins = r.Output.DurationMins
		summary.TimezoneConflict = !r.Outcome.Decision.TimezoneVerification.Compatible
	}
	s.observer.ObserveRequest(summary)
}
