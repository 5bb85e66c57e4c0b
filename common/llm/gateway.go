package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// GatewayConfig bounds every completion call.
type GatewayConfig struct {
	Timeout      time.Duration // per attempt
	MaxAttempts  int           // 2 = one retry
	RetryBackoff time.Duration

	BreakerFailures    uint32        // consecutive failures before the breaker opens
	BreakerOpenTimeout time.Duration // how long it stays open before a probe
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Timeout:            20 * time.Second,
		MaxAttempts:        2,
		RetryBackoff:       250 * time.Millisecond,
		BreakerFailures:    5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// Gateway is the only path from the coordinator to the completion service. It
// applies the per-call timeout, a single retry on transient failures and a circuit
// breaker, and always returns either non-empty text or an error.
type Gateway struct {
	completer Completer
	cfg       GatewayConfig
	breaker   *gobreaker.CircuitBreaker[*Response]
}

// NewGateway wraps c. A nil c yields a gateway that fails every call with
// ErrUnavailable, which every caller already handles via its fallback.
func NewGateway(c Completer, cfg GatewayConfig) *Gateway {
	defaults := DefaultGatewayConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaults.BreakerFailures
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = defaults.BreakerOpenTimeout
	}

	threshold := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "completion",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the service failing.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Gateway{completer: c, cfg: cfg, breaker: breaker}
}

// Available reports whether a backend is configured at all.
func (g *Gateway) Available() bool {
	return g != nil && g.completer != nil
}

// State is "disabled" without a backend, otherwise the breaker state
// ("closed", "half-open" or "open").
func (g *Gateway) State() string {
	if !g.Available() {
		return "disabled"
	}
	return g.breaker.State().String()
}

func (g *Gateway) Model() string {
	if !g.Available() {
		return ""
	}
	return g.completer.Model()
}

// Complete sends req and returns the trimmed completion text.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	if !g.Available() {
		return "", ErrUnavailable
	}

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		resp, err := g.attempt(ctx, req)
		if err == nil {
			content := strings.TrimSpace(resp.Content)
			if content == "" {
				return "", ErrEmptyCompletion
			}
			return content, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrCircuitOpen
		}
		if attempt == g.cfg.MaxAttempts || !g.shouldRetry(ctx, err) {
			break
		}

		slog.WarnContext(ctx, "completion attempt failed, retrying",
			"attempt", attempt,
			"error", err)
		if !sleep(ctx, g.cfg.RetryBackoff) {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("completion: %w", lastErr)
}

func (g *Gateway) attempt(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	return g.breaker.Execute(func() (*Response, error) {
		return g.completer.Complete(callCtx, req)
	})
}

// shouldRetry treats an attempt-level timeout as transient as long as the caller
// itself is still waiting.
func (g *Gateway) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return IsRetryable(ctx, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
