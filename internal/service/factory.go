package service

import (
	"log/slog"

	"basegraph.app/convene/internal/brain"
	"basegraph.app/convene/internal/metrics"
	"basegraph.app/convene/internal/participant"
	"basegraph.app/convene/internal/queue"
	"basegraph.app/convene/internal/store"
)

// Deps are the collaborators shared by every service. Producer and ScheduleLog
// are optional.
type Deps struct {
	Completer   brain.Completer
	Directory   *participant.Directory
	Brain       brain.Config
	Observer    metrics.Observer
	Producer    queue.Producer
	ScheduleLog store.ScheduleLog
	Logger      *slog.Logger
}

type Services struct {
	deps        Deps
	coordinator *brain.Coordinator
	scheduling  SchedulingService
}

func NewServices(deps Deps) *Services {
	coordinator := brain.NewCoordinator(deps.Completer, deps.Directory, deps.Brain, deps.Observer)
	return &Services{
		deps:        deps,
		coordinator: coordinator,
		scheduling: NewSchedulingService(
			brain.NewRequestParser(deps.Completer, deps.Brain, deps.Observer),
			coordinator,
			NewOutputAssembler(deps.Directory, deps.Brain),
			deps.Observer,
			deps.Producer,
			deps.ScheduleLog,
			deps.Logger,
		),
	}
}

func (s *Services) Scheduling() SchedulingService {
	return s.scheduling
}

func (s *Services) Timezones() *brain.TimezoneVerifier {
	return s.coordinator.Verifier()
}

func (s *Services) Directory() *participant.Directory {
	return s.deps.Directory
}
