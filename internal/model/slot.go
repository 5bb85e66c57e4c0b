package model

import "time"

// TimeSlot is a candidate meeting interval.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// CandidateSlot is an availability proposal scored 0–1.
type CandidateSlot struct {
	TimeSlot
	Score float64
}

// NegotiationResult is one participant's pick. It deliberately carries no
// participant identity.
type NegotiationResult struct {
	TimeSlot
	Confidence float64
}

type FinalDecision struct {
	TimeSlot
	Confidence           float64
	TimezoneVerification TimezoneVerificationResult
}

// SlotFrom builds a slot of the given length starting at start.
func SlotFrom(start time.Time, d time.Duration) TimeSlot {
	return TimeSlot{Start: start, End: start.Add(d)}
}
