package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/service"
)

type ScheduleHandler struct {
	scheduling service.SchedulingService
}

func NewScheduleHandler(scheduling service.SchedulingService) *ScheduleHandler {
	return &ScheduleHandler{scheduling: scheduling}
}

// Receive schedules one meeting request and returns the output record. A
// rejected envelope still answers 200 with the error shape; only a body that is
// not JSON is a 400.
func (h *ScheduleHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	var req model.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: body must be a JSON meeting request"})
		return
	}

	slog.InfoContext(ctx, "meeting request received",
		"request_id", req.RequestID,
		"from", req.From,
		"attendees", len(req.Attendees))

	result := h.scheduling.Schedule(ctx, req)
	c.JSON(http.StatusOK, result.OutputBody())
}
