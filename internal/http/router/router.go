package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/convene/internal/http/handler"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/service"
)

type RouterConfig struct {
	Stats *metrics.Stats
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	AIServer       string
	Completion     handler.CompletionState
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	scheduleHandler := handler.NewScheduleHandler(services.Scheduling())
	router.POST("/receive", scheduleHandler.Receive)

	statusHandler := handler.NewStatusHandler(
		cfg.Stats,
		services.Timezones(),
		services.Directory().AgentCount(),
		cfg.AIServer,
		cfg.Completion,
	)
	api := router.Group("/api")
	{
		api.GET("/health", statusHandler.Health)
		api.GET("/stats", statusHandler.Stats)
		api.POST("/timezones/verify", statusHandler.VerifyTimezone)
	}

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}
}
