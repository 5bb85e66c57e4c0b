package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/http/handler"
	"basegraph.app/convene/internal/metrics"
)

var _ = Describe("StatusHandler", func() {
	var (
		router *gin.Engine
		stats  *metrics.Stats
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		stats = metrics.NewStats()
		verifier := brain.NewTimezoneVerifier(map[string]string{
			"userone.amd@gmail.com": "Asia/Kolkata",
			"usertwo.amd@gmail.com": "America/New_York",
		})
		h := handler.NewStatusHandler(stats, verifier, 2, "http://localhost:3000/v1", fixedState("closed"))
		router.GET("/api/health", h.Health)
		router.GET("/api/stats", h.Stats)
		router.POST("/api/timezones/verify", h.VerifyTimezone)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	It("reports health", func() {
		w := get("/api/health")

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("status", "healthy"))
		Expect(body).To(HaveKeyWithValue("tokens_loaded", BeNumerically("==", 2)))
		Expect(body).To(HaveKeyWithValue("ai_server", "http://localhost:3000/v1"))
		Expect(body).To(HaveKeyWithValue("completion", "closed"))
		Expect(body).To(HaveKey("timestamp"))
	})

	It("reports request statistics", func() {
		stats.ObserveRequest(metrics.RequestSummary{
			From: "userone.amd@gmail.com", Subject: "Sync", DurationMins: "30",
			Success: true, ProcessingTime: 1500 * time.Millisecond, At: time.Now(),
		})
		stats.ObserveRequest(metrics.RequestSummary{Success: false, At: time.Now()})

		w := get("/api/stats")

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("total_requests", BeNumerically("==", 2)))
		Expect(body).To(HaveKeyWithValue("successful_requests", BeNumerically("==", 1)))
		Expect(body).To(HaveKeyWithValue("success_rate", BeNumerically("==", 50)))
		Expect(body["recent_requests"]).To(HaveLen(2))
	})

	It("verifies an instant against the timezone table", func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/timezones/verify",
			bytes.NewBufferString(`{"at":"2025-07-17T14:00:00+05:30"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("compatible", false))
		Expect(body).To(HaveKeyWithValue("suggested_alternative", "2025-07-17T16:00:00+05:30"))
		Expect(body).To(HaveKeyWithValue("verification_method", "Direct timezone calculation"))
	})

	It("rejects an unparseable instant", func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/timezones/verify", bytes.NewBufferString(`{"at":"soon"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
