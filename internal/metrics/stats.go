package metrics

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const recentRequestLimit = 10

// RecentRequest is one row of the recent-requests list.
type RecentRequest struct {
	Time           string  `json:"time"`
	From           string  `json:"from"`
	Subject        string  `json:"subject"`
	Duration       string  `json:"duration"`
	ProcessingTime float64 `json:"processing_time"`
	Success        bool    `json:"success"`
}

type StatsSnapshot struct {
	TotalRequests         int             `json:"total_requests"`
	SuccessfulRequests    int             `json:"successful_requests"`
	FailedRequests        int             `json:"failed_requests"`
	SuccessRate           float64         `json:"success_rate"`
	AISuccessRate         float64         `json:"ai_success_rate"`
	AverageProcessingTime float64         `json:"average_processing_time"`
	TimezoneConflicts     int             `json:"timezone_conflicts"`
	AIFallbacks           int             `json:"ai_fallbacks"`
	Uptime                string          `json:"uptime"`
	RecentRequests        []RecentRequest `json:"recent_requests"`
}

// Stats keeps process-lifetime request counters for the stats endpoint.
type Stats struct {
	mu        sync.Mutex
	startedAt time.Time
	now       func() time.Time

	total, successful, failed int
	timezoneConflicts         int
	// requests where at least one phase fell back
	aiFallbacks     int
	processingTotal time.Duration
	recent          []RecentRequest
}

func NewStats() *Stats {
	return newStatsWithClock(time.Now)
}

func newStatsWithClock(now func() time.Time) *Stats {
	return &Stats{startedAt: now(), now: now}
}

func (s *Stats) ObservePhase(string, Outcome, time.Duration) {}

func (s *Stats) ObserveRequest(r RequestSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.processingTotal += r.ProcessingTime

	row := RecentRequest{
		Time:           r.At.Format("15:04:05"),
		From:           orDefault(r.From, "Unknown"),
		Subject:        orDefault(r.Subject, "No Subject"),
		Duration:       orDefault(r.DurationMins, "Unknown"),
		ProcessingTime: round(r.ProcessingTime.Seconds(), 2),
		Success:        r.Success,
	}

	if r.Success {
		s.successful++
		if r.TimezoneConflict {
			s.timezoneConflicts++
		}
		if r.Fallbacks > 0 {
			s.aiFallbacks++
		}
	} else {
		s.failed++
		row.Duration = "Failed"
	}

	s.recent = append(s.recent, row)
	if len(s.recent) > recentRequestLimit {
		s.recent = s.recent[len(s.recent)-recentRequestLimit:]
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		TotalRequests:      s.total,
		SuccessfulRequests: s.successful,
		FailedRequests:     s.failed,
		SuccessRate:        100,
		AISuccessRate:      100,
		TimezoneConflicts:  s.timezoneConflicts,
		AIFallbacks:        s.aiFallbacks,
		Uptime:             formatUptime(s.now().Sub(s.startedAt)),
		RecentRequests:     append([]RecentRequest{}, s.recent...),
	}
	if s.total > 0 {
		snap.SuccessRate = round(float64(s.successful)/float64(s.total)*100, 1)
		snap.AISuccessRate = round(float64(s.total-s.aiFallbacks)/float64(s.total)*100, 1)
		snap.AverageProcessingTime = round(s.processingTotal.Seconds()/float64(s.total), 2)
	}
	return snap
}

// formatUptime renders "12m 5s" under an hour and "1d 2h 3m" otherwise.
func formatUptime(d time.Duration) string {
	secs := int(d.Seconds())
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	days := secs / 86400
	rem := secs % 86400
	return fmt.Sprintf("%dd %dh %dm", days, rem/3600, (rem/60)%60)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
