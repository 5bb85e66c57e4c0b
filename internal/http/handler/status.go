package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/http/dto"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/timewindow"
)

// CompletionState reports the completion gateway's breaker state.
type CompletionState interface {
	State() string
}

type StatusHandler struct {
	stats     *metrics.Stats
	verifier  *brain.TimezoneVerifier
	agents    int
	aiServer  string
	completer CompletionState
	now       func() time.Time
}

func NewStatusHandler(stats *metrics.Stats, verifier *brain.TimezoneVerifier, agents int, aiServer string, completer CompletionState) *StatusHandler {
	return &StatusHandler{
		stats:     stats,
		verifier:  verifier,
		agents:    agents,
		aiServer:  aiServer,
		completer: completer,
		now:       time.Now,
	}
}

func (h *StatusHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:       "healthy",
		Timestamp:    h.now().Format(time.RFC3339Nano),
		TokensLoaded: h.agents,
		AIServer:     h.aiServer,
	}
	if h.completer != nil {
		resp.Completion = h.completer.State()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StatusHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

// VerifyTimezone runs only the timezone gate for an instant.
func (h *StatusHandler) VerifyTimezone(c *gin.Context) {
	var req dto.VerifyTimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: at is required"})
		return
	}
	at, err := timewindow.Parse(req.At)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.verifier.Verify(c.Request.Context(), model.MeetingInfo{
		DurationMinutes:   model.DefaultDurationMinutes,
		Urgency:           model.UrgencyMedium,
		PreferredDatetime: at,
		TimeStated:        true,
	})
	c.JSON(http.StatusOK, result)
}
