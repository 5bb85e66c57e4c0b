package model

import (
	"strings"
	"time"
)

// Urgency is a coarse priority label controlling how far ahead the scheduler searches.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// ParseUrgency accepts any casing of the four labels.
func ParseUrgency(s string) (Urgency, bool) {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyUrgent, UrgencyHigh, UrgencyMedium, UrgencyLow:
		return u, true
	default:
		return "", false
	}
}

// MeetingSource records which path produced a MeetingInfo.
type MeetingSource string

const (
	MeetingSourceCompletion MeetingSource = "completion"
	MeetingSourceHeuristic  MeetingSource = "heuristic"
)

const DefaultDurationMinutes = 30

type MeetingInfo struct {
	DurationMinutes   int           `json:"duration_minutes"`
	Urgency           Urgency       `json:"urgency"`
	PreferredDatetime time.Time     `json:"preferred_datetime"`
	Source            MeetingSource `json:"source"`
	// TimeStated is false when the preferred instant is the heuristic default
	// rather than something the request (or the completion service) named.
	TimeStated bool `json:"time_stated"`
}

func (m MeetingInfo) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}
