package brain

import (
	"fmt"
	"time"

	"basegraph.app/convene/internal/calendar"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

const parseSystemPrompt = `Parse meeting requests. Extract duration, urgency, datetime. Return JSON: {"duration_minutes":30,"urgency":"medium","preferred_datetime":"2025-07-03T14:00:00+05:30"}`

const (
	promptBusyLimit   = 10
	promptOwnLimit    = 3
	promptPeerSlots   = 3
	promptPeerLimit   = 2
	promptResultLimit = 3
)

func parsePrompt(text string, base time.Time) string {
	return fmt.Sprintf("Parse: %s. Date: %s.", text, base.In(timewindow.Origin).Format(timewindow.DateLayout))
}

func availabilityPrompt(durationMins int, w timewindow.Window, busy []calendar.BusyInterval) string {
	if len(busy) > promptBusyLimit {
		busy = busy[:promptBusyLimit]
	}
	return fmt.Sprintf(`Find %dmin slots between %s and %s.
Busy: %s
Hours: 9AM-6PM weekdays.
Return JSON: [{"start":"2025-07-17T10:00:00+05:30","end":"2025-07-17T10:30:00+05:30","score":0.9}]`,
		durationMins, w.StartString(), w.EndString(), mustJSON(busy))
}

func negotiationPrompt(email string, own []model.CandidateSlot, peers [][]model.CandidateSlot) string {
	others := make([][]slotAnswer, 0, len(peers))
	for _, p := range peers {
		others = append(others, candidatesWire(p, promptPeerSlots))
	}
	return fmt.Sprintf(`Agent %s negotiation.
My slots: %s
Others: %s
Pick best common slot.
Return: {"start":"...","end":"...","confidence":0.9}`,
		email, mustJSON(candidatesWire(own, promptOwnLimit)), mustJSON(others))
}

func decisionPrompt(meeting model.MeetingInfo, results []model.NegotiationResult) string {
	return fmt.Sprintf(`Boss final decision.
Duration: %dmins
Urgency: %s
Results: %s

Pick best time with highest consensus.
Return: {"start":"2025-07-17T14:00:00+05:30","end":"2025-07-17T14:30:00+05:30","confidence":0.95}`,
		meeting.DurationMinutes, meeting.Urgency, mustJSON(resultsWire(results, promptResultLimit)))
}
