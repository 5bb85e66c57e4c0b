// Package metrics records coordination outcomes. Observers are side channels: the
// coordinator never reads them back.
package metrics

import "time"

// Outcome of one completion-backed phase.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFallback  Outcome = "fallback"
)

// RequestSummary describes one finished /receive call.
type RequestSummary struct {
	RequestID        string
	From             string
	Subject          string
	DurationMins     string
	Success          bool
	ProcessingTime   time.Duration
	TimezoneConflict bool
	Fallbacks        int
	At               time.Time
}

type Observer interface {
	ObservePhase(phase string, outcome Outcome, elapsed time.Duration)
	ObserveRequest(s RequestSummary)
}

type Noop struct{}

func (Noop) ObservePhase(string, Outcome, time.Duration) {}
func (Noop) ObserveRequest(RequestSummary)               {}

type multi []Observer

// NewMulti fans observations out to every non-nil observer.
func NewMulti(observers ...Observer) Observer {
	var m multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return Noop{}
	case 1:
		return m[0]
	default:
		return m
	}
}

func (m multi) ObservePhase(phase string, outcome Outcome, elapsed time.Duration) {
	for _, o := range m {
		o.ObservePhase(phase, outcome, elapsed)
	}
}

func (m multi) ObserveRequest(s RequestSummary) {
	for _, o := range m {
		o.ObserveRequest(s)
	}
}
