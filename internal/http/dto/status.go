package dto

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	TokensLoaded int    `json:"tokens_loaded"`
	AIServer     string `json:"ai_server"`
	Completion   string `json:"completion"`
}

type VerifyTimezoneRequest struct {
	At string `json:"at" binding:"required"`
}
