package model

// AttendeeRef is an invitee as named in the request envelope.
type AttendeeRef struct {
	Email string `json:"email"`
}

// ScheduleRequest is the inbound meeting request envelope.
type ScheduleRequest struct {
	RequestID    string        `json:"Request_id"`
	Datetime     string        `json:"Datetime"`
	Location     string        `json:"Location"`
	From         string        `json:"From"`
	Attendees    []AttendeeRef `json:"Attendees"`
	Subject      string        `json:"Subject"`
	EmailContent string        `json:"EmailContent"`
}

// Participants is the organizer followed by every attendee, in request order.
func (r ScheduleRequest) Participants() []string {
	participants := make([]string, 0, len(r.Attendees)+1)
	participants = append(participants, r.From)
	for _, a := range r.Attendees {
		participants = append(participants, a.Email)
	}
	return participants
}

type ProcessedRecord struct {
	RequestID    string        `json:"Request_id"`
	Datetime     string        `json:"Datetime"`
	Location     string        `json:"Location"`
	From         string        `json:"From"`
	Attendees    []AttendeeRef `json:"Attendees"`
	Subject      string        `json:"Subject"`
	EmailContent string        `json:"EmailContent"`
	Start        string        `json:"Start"`
	End          string        `json:"End"`
	DurationMins string        `json:"Duration_mins"`
}

type AttendeeCalendar struct {
	Email  string          `json:"email"`
	Events []CalendarEvent `json:"events"`
}

type OutputMetaData struct {
	TimezoneVerification  TimezoneVerificationResult `json:"timezone_verification"`
	TimezoneSummary       string                     `json:"timezone_summary"`
	TimezoneAssignments   map[string]string          `json:"timezone_assignments"`
	SchedulingStep        string                     `json:"scheduling_step"`
	ProcessingTimeSeconds float64                    `json:"processing_time_seconds"`
	Optimization          string                     `json:"optimization"`
}

type OutputRecord struct {
	RequestID    string             `json:"Request_id"`
	Datetime     string             `json:"Datetime"`
	Location     string             `json:"Location"`
	From         string             `json:"From"`
	Attendees    []AttendeeCalendar `json:"Attendees"`
	Subject      string             `json:"Subject"`
	EmailContent string             `json:"EmailContent"`
	EventStart   string             `json:"EventStart"`
	EventEnd     string             `json:"EventEnd"`
	DurationMins string             `json:"Duration_mins"`
	MetaData     OutputMetaData     `json:"MetaData"`
}

// ErrorRecord replaces both representations when a request is abandoned.
type ErrorRecord struct {
	Error string `json:"error"`
}
