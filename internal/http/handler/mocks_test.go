package handler_test

import (
	"context"

	"basegraph.app/convene/internal/model"
	"basegraph.app/convene/internal/service"
)

type mockSchedulingService struct {
	scheduleFn func(ctx context.Context, req model.ScheduleRequest) *service.Result
	callCount  int
}

func (m *mockSchedulingService) Schedule(ctx context.Context, req model.ScheduleRequest) *service.Result {
	m.callCount++
	if m.scheduleFn != nil {
		return m.scheduleFn(ctx, req)
	}
	return &service.Result{}
}

type fixedState string

func (s fixedState) State() string { return string(s) }
