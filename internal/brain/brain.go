// Package brain runs the coordination protocol: parse a request, gate it on
// participant timezones, gather availability, negotiate and decide. Every step
// that asks the completion service has a deterministic fallback, so each
// exported operation returns a usable result and never an error.
package brain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"basegraph.app/convene/common/llm"
	"basegraph.app/convene/common/logger"
	"basegraph.app/convene/internal/metrics"
)

// Completer is the slice of the completion gateway the protocol uses.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

const (
	PhaseParse        = "parse"
	PhaseTimezone     = "timezone"
	PhaseAvailability = "availability"
	PhaseNegotiate    = "negotiate"
	PhaseDecide       = "decide"
)

type Config struct {
	MaxParallel           int
	ParseMaxTokens        int
	AvailabilityMaxTokens int
	NegotiateMaxTokens    int
	DecideMaxTokens       int
	CalendarTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxParallel:           8,
		ParseMaxTokens:        50,
		AvailabilityMaxTokens: 300,
		NegotiateMaxTokens:    150,
		DecideMaxTokens:       150,
		CalendarTimeout:       15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxParallel <= 0 {
		c.MaxParallel = d.MaxParallel
	}
	if c.ParseMaxTokens <= 0 {
		c.ParseMaxTokens = d.ParseMaxTokens
	}
	if c.AvailabilityMaxTokens <= 0 {
		c.AvailabilityMaxTokens = d.AvailabilityMaxTokens
	}
	if c.NegotiateMaxTokens <= 0 {
		c.NegotiateMaxTokens = d.NegotiateMaxTokens
	}
	if c.DecideMaxTokens <= 0 {
		c.DecideMaxTokens = d.DecideMaxTokens
	}
	if c.CalendarTimeout <= 0 {
		c.CalendarTimeout = d.CalendarTimeout
	}
	return c
}

// errInvalidAnswer marks a decodable answer whose values are unusable.
var errInvalidAnswer = errors.New("completion answer failed validation")

// stage is the completion plumbing shared by every phase.
type stage struct {
	phase       string
	llm         Completer
	maxTokens   int
	temperature float64
	obs         metrics.Observer
}

func newStage(phase string, c Completer, maxTokens int, temperature float64, obs metrics.Observer) stage {
	if obs == nil {
		obs = metrics.Noop{}
	}
	return stage{phase: phase, llm: c, maxTokens: maxTokens, temperature: temperature, obs: obs}
}

func (s stage) complete(ctx context.Context, msgs []llm.Message, schemaName string, schema any) (string, error) {
	if s.llm == nil {
		return "", llm.ErrUnavailable
	}
	return s.llm.Complete(ctx, llm.Request{
		Messages:    msgs,
		MaxTokens:   s.maxTokens,
		Temperature: llm.Temp(s.temperature),
		SchemaName:  schemaName,
		Schema:      schema,
	})
}

func (s stage) succeeded(ctx context.Context, start time.Time) {
	slog.DebugContext(ctx, "completion answer accepted", "duration_ms", time.Since(start).Milliseconds())
	s.obs.ObservePhase(s.phase, metrics.OutcomeCompleted, time.Since(start))
}

func (s stage) fellBack(ctx context.Context, sc *logger.SpanContext, start time.Time, err error) {
	reason := fallbackReason(err)
	slog.WarnContext(ctx, "completion unusable, using fallback",
		"reason", reason,
		"error", err)
	sc.MarkFallback(reason)
	s.obs.ObservePhase(s.phase, metrics.OutcomeFallback, time.Since(start))
	if t := tallyFrom(ctx); t != nil {
		t.n.Add(1)
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, llm.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, llm.ErrEmptyCompletion):
		return "empty"
	case llm.IsMalformed(err):
		return "malformed"
	case errors.Is(err, errInvalidAnswer):
		return "invalid"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

type tallyKey struct{}

// FallbackTally counts fallbacks taken while handling one request.
type FallbackTally struct {
	n atomic.Int32
}

func (t *FallbackTally) Count() int {
	return int(t.n.Load())
}

// WithFallbackTally attaches a fresh tally that every phase run under ctx adds to.
func WithFallbackTally(ctx context.Context) (context.Context, *FallbackTally) {
	t := &FallbackTally{}
	return context.WithValue(ctx, tallyKey{}, t), t
}

func tallyFrom(ctx context.Context) *FallbackTally {
	t, _ := ctx.Value(tallyKey{}).(*FallbackTally)
	return t
}

func withPhase(ctx context.Context, phase, component string) context.Context {
	return logger.WithLogFields(ctx, logger.LogFields{
		Phase:     logger.Ptr(phase),
		Component: component,
	})
}
