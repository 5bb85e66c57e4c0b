package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/convene/internal/model"
)

// Enqueue appends req to the request stream and returns the entry ID.
func Enqueue(ctx context.Context, client *redis.Client, stream string, req model.ScheduleRequest) (string, error) {
	values, err := requestValues(ctx, req)
	if err != nil {
		return "", err
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd request (stream=%s): %w", stream, err)
	}
	return id, nil
}

func requestValues(ctx context.Context, req model.ScheduleRequest) (map[string]any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	msg := Message{Body: string(body), Request: req}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		msg.TraceID = sc.TraceID().String()
	}
	return messageValues(msg, 1), nil
}
