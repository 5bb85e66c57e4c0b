package participant

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"basegraph.app/convene/core/config"
	"basegraph.app/convene/internal/calendar"
)

// File is the YAML participants table.
//
//	participants:
//	  - email: userone.amd@gmail.com
//	    timezone: Asia/Kolkata
//	    calendar:
//	      kind: google
type File struct {
	Participants []Entry `yaml:"participants"`
}

type Entry struct {
	Email    string       `yaml:"email"`
	Timezone string       `yaml:"timezone"`
	Calendar CalendarSpec `yaml:"calendar"`
}

type CalendarSpec struct {
	Kind       calendar.Kind          `yaml:"kind"`
	TokenFile  string                 `yaml:"token_file"`  // google; default <token dir>/<username>.token
	CalendarID string                 `yaml:"calendar_id"` // google; default primary
	URL        string                 `yaml:"url"`         // ical
	Events     []calendar.StaticEvent `yaml:"events"`      // static
}

// DefaultEntries is the built-in three-participant table.
func DefaultEntries() []Entry {
	return []Entry{
		{Email: "userone.amd@gmail.com", Timezone: "Asia/Kolkata", Calendar: CalendarSpec{Kind: calendar.KindGoogle}},
		{Email: "usertwo.amd@gmail.com", Timezone: "America/New_York", Calendar: CalendarSpec{Kind: calendar.KindGoogle}},
		{Email: "userthree.amd@gmail.com", Timezone: "Asia/Kolkata", Calendar: CalendarSpec{Kind: calendar.KindGoogle}},
	}
}

// ReadFile parses a participants file.
func ReadFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading participants file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing participants file %s: %w", path, err)
	}
	if len(f.Participants) == 0 {
		return nil, fmt.Errorf("participants file %s lists no participants", path)
	}
	return f.Participants, nil
}

// Load reads cfg.ParticipantsFile (or the built-in table) and builds the directory.
func Load(ctx context.Context, cfg config.Config) (*Directory, error) {
	entries := DefaultEntries()
	if cfg.ParticipantsFile != "" {
		var err error
		if entries, err = ReadFile(cfg.ParticipantsFile); err != nil {
			return nil, err
		}
	}
	return Build(ctx, entries, cfg.Calendar)
}

// Build sets up a calendar per entry. A participant whose calendar cannot be set
// up keeps its timezone assignment but gets no agent, so it contributes no slots.
func Build(ctx context.Context, entries []Entry, cfg config.CalendarConfig) (*Directory, error) {
	assignments := make(map[string]string, len(entries))
	agents := make([]*Agent, 0, len(entries))

	for _, e := range entries {
		if e.Timezone == "" {
			return nil, fmt.Errorf("participant %s has no timezone", e.Email)
		}
		assignments[e.Email] = e.Timezone

		provider, err := newProvider(ctx, e, cfg)
		if err != nil {
			slog.WarnContext(ctx, "participant calendar unavailable, no agent created",
				"participant", e.Email,
				"kind", e.Calendar.Kind,
				"error", err)
			continue
		}
		agents = append(agents, &Agent{Email: e.Email, Timezone: e.Timezone, Calendar: provider})
	}

	d, err := NewDirectory(assignments, agents)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "participants loaded",
		"assigned", len(assignments),
		"agents", d.AgentCount())
	return d, nil
}

func newProvider(ctx context.Context, e Entry, cfg config.CalendarConfig) (calendar.Provider, error) {
	switch e.Calendar.Kind {
	case calendar.KindGoogle, "":
		path := e.Calendar.TokenFile
		if path == "" {
			path = calendar.TokenPath(cfg.TokenDir, e.Email)
		}
		tf, err := calendar.LoadTokenFile(path)
		if err != nil {
			return nil, err
		}
		return calendar.NewGoogle(tf.TokenSource(context.WithoutCancel(ctx)),
			calendar.WithCalendarID(e.Calendar.CalendarID),
			calendar.WithTimeout(cfg.Timeout),
		), nil
	case calendar.KindICal:
		if e.Calendar.URL == "" {
			return nil, fmt.Errorf("ical calendar needs a url")
		}
		return calendar.NewICal(e.Calendar.URL, cfg.Timeout), nil
	case calendar.KindStatic:
		return calendar.NewStatic(e.Calendar.Events)
	case calendar.KindNone:
		return calendar.Empty{}, nil
	default:
		return nil, fmt.Errorf("unknown calendar kind %q", e.Calendar.Kind)
	}
}
