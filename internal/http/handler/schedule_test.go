package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/convene/internal/http/handler"
	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/service"
)

var _ = Describe("ScheduleHandler", func() {
	var (
		router *gin.Engine
		svc    *mockSchedulingService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockSchedulingService{}
		h := handler.NewScheduleHandler(svc)
		router.POST("/receive", h.Receive)
	})

	post := func(body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/receive", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("returns the output record", func() {
		var got model.ScheduleRequest
		svc.scheduleFn = func(_ context.Context, req model.ScheduleRequest) *service.Result {
			got = req
			return &service.Result{Output: &model.OutputRecord{
				RequestID:    req.RequestID,
				EventStart:   "2025-07-17T10:00:00+05:30",
				EventEnd:     "2025-07-17T10:30:00+05:30",
				DurationMins: "30",
			}}
		}

		w := post([]byte(`{
			"Request_id": "req-1",
			"Datetime": "13-07-2025T14:00:00",
			"Location": "IISc Bangalore",
			"From": "userone.amd@gmail.com",
			"Attendees": [{"email": "usertwo.amd@gmail.com"}],
			"Subject": "Sync",
			"EmailContent": "Quick 30 minute test"
		}`))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(got.Attendees).To(Equal([]model.AttendeeRef{{Email: "usertwo.amd@gmail.com"}}))
		Expect(got.Datetime).To(Equal("13-07-2025T14:00:00"))

		var body map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("Request_id", "req-1"))
		Expect(body).To(HaveKeyWithValue("Duration_mins", "30"))
		Expect(body).To(HaveKeyWithValue("EventStart", "2025-07-17T10:00:00+05:30"))
	})

	It("answers 200 with the error shape for a rejected envelope", func() {
		svc.scheduleFn = func(context.Context, model.ScheduleRequest) *service.Result {
			return &service.Result{Err: fmt.Errorf("%w: missing Request_id", service.ErrInvalidRequest)}
		}

		w := post([]byte(`{"From": "userone.amd@gmail.com"}`))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"invalid request: missing Request_id"}`))
	})

	It("returns 400 for a body that is not JSON", func() {
		w := post([]byte(`not json`))

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("invalid request"))
		Expect(svc.callCount).To(Equal(0))
	})
})
