package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The coordinator sets RequestID once per run; fan-out tasks add Participant and Phase
// so every line from a worker can be attributed without passing loggers around.
type LogFields struct {
	RequestID   *string // Request_id from the envelope
	ScheduleID  *int64  // Schedule log row, when persistence is enabled
	Participant *string // Participant email a task acts for
	Phase       *string // Coordinator phase (e.g. "parse", "availability", "negotiate")
	Component   string  // Component name (OTel semantic convention style, e.g. "convene.brain.negotiator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.RequestID != nil {
		result.RequestID = new.RequestID
	}
	if new.ScheduleID != nil {
		result.ScheduleID = new.ScheduleID
	}
	if new.Participant != nil {
		result.Participant = new.Participant
	}
	if new.Phase != nil {
		result.Phase = new.Phase
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{Phase: logger.Ptr("parse")})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Used for completion text and email bodies in log lines.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
