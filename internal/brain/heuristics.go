package brain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

type phraseRule[T any] struct {
	phrases []string
	value   T
}

// Ordered: the first rule with a matching phrase wins.
var durationRules = []phraseRule[int]{
	{[]string{"45 minutes", "45 min"}, 45},
	{[]string{"90 minutes", "90 min", "hour and a half"}, 90},
	{[]string{"half an hour", "half-hour"}, 30},
	{[]string{"hour"}, 60},
}

var urgencyRules = []phraseRule[model.Urgency]{
	{[]string{"urgent", "asap", "emergency", "immediately"}, model.UrgencyUrgent},
	{[]string{"high priority", "important", "soon"}, model.UrgencyHigh},
	{[]string{"low priority", "no rush", "whenever"}, model.UrgencyLow},
}

var (
	clockPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	noonPattern    = regexp.MustCompile(`(?i)\bnoon\b`)
	weekdayPattern = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

const (
	defaultMeetingHour = 14
	referenceWeekday   = time.Thursday
)

// ParseHeuristically is the pure keyword fallback for RequestParser. The
// preferred instant it returns is always strictly after base.
func ParseHeuristically(text string, base time.Time) model.MeetingInfo {
	base = base.In(timewindow.Origin)
	lower := strings.ToLower(text)

	info := model.MeetingInfo{
		DurationMinutes: matchPhrase(lower, durationRules, model.DefaultDurationMinutes),
		Urgency:         matchPhrase(lower, urgencyRules, model.UrgencyMedium),
		Source:          model.MeetingSourceHeuristic,
	}

	day, weekly, dayFound := resolveDay(lower, base)
	hour, minute, timeFound := resolveClock(lower)

	switch {
	case !dayFound && !timeFound:
		info.PreferredDatetime = timewindow.At(nextWeekday(base, referenceWeekday), defaultMeetingHour, 0)
		return info
	case !dayFound:
		day = base
	case !timeFound:
		hour, minute = defaultMeetingHour, 0
	}

	preferred := timewindow.At(day, hour, minute)
	if !preferred.After(base) {
		if weekly {
			preferred = preferred.AddDate(0, 0, 7)
		} else {
			preferred = preferred.AddDate(0, 0, 1)
		}
	}
	info.PreferredDatetime = preferred
	info.TimeStated = true
	return info
}

func matchPhrase[T any](lower string, rules []phraseRule[T], fallback T) T {
	for _, r := range rules {
		for _, p := range r.phrases {
			if strings.Contains(lower, p) {
				return r.value
			}
		}
	}
	return fallback
}

// resolveDay returns the named day and whether it recurs weekly (a weekday name
// or "next week"), which decides how a past time rolls forward.
func resolveDay(lower string, base time.Time) (time.Time, bool, bool) {
	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return base.AddDate(0, 0, 2), false, true
	case strings.Contains(lower, "tomorrow"):
		return base.AddDate(0, 0, 1), false, true
	case strings.Contains(lower, "today"):
		return base, false, true
	case strings.Contains(lower, "next week"):
		return nextWeekday(base, time.Monday), true, true
	}
	if m := weekdayPattern.FindStringSubmatch(lower); m != nil {
		return nextWeekday(base, weekdays[m[1]]), true, true
	}
	return time.Time{}, false, false
}

func resolveClock(lower string) (int, int, bool) {
	if m := clockPattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour >= 1 && hour <= 12 && minute < 60 {
			switch {
			case m[3] == "pm" && hour != 12:
				hour += 12
			case m[3] == "am" && hour == 12:
				hour = 0
			}
			return hour, minute, true
		}
	}
	if noonPattern.MatchString(lower) {
		return 12, 0, true
	}
	return 0, 0, false
}

// nextWeekday is the next date with weekday wd strictly after base's date.
func nextWeekday(base time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(base.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return base.AddDate(0, 0, days)
}
