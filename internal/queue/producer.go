// Package queue moves meeting requests in and scheduling decisions out over Redis
// streams. Publishing decisions is a side channel: a failed publish never changes
// the response.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const EventMeetingScheduled = "meeting_scheduled"

// MeetingScheduled is the stream entry written for every successful request.
type MeetingScheduled struct {
	ScheduleID   int64
	RequestID    string
	From         string
	Attendees    []string
	Subject      string
	Start        string
	End          string
	DurationMins int
	Confidence   float64
	Method       string
	Fallbacks    int
}

type Producer interface {
	Publish(ctx context.Context, msg MeetingScheduled) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func (p *redisProducer) Publish(ctx context.Context, msg MeetingScheduled) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: streamFields(msg),
	}).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", EventMeetingScheduled, err)
	}

	p.logger.InfoContext(ctx, "published scheduling decision",
		"schedule_id", msg.ScheduleID,
		"stream", p.stream,
		"start", msg.Start)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func streamFields(msg MeetingScheduled) map[string]any {
	return map[string]any{
		"event_type":    EventMeetingScheduled,
		"schedule_id":   msg.ScheduleID,
		"request_id":    msg.RequestID,
		"from":          msg.From,
		"attendees":     strings.Join(msg.Attendees, ","),
		"subject":       msg.Subject,
		"start":         msg.Start,
		"end":           msg.End,
		"duration_mins": msg.DurationMins,
		"confidence":    msg.Confidence,
		"method":        msg.Method,
		"fallbacks":     msg.Fallbacks,
	}
}
