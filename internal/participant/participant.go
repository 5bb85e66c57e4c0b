// Package participant holds the fixed participant table: who the system can act
// for, their assigned timezone and their calendar.
package participant

import (
	"fmt"
	"sort"
	"strings"

	"basegraph.app/convene/internal/calendar"
)

// Agent is the scheduler's proxy for one known participant.
type Agent struct {
	Email    string
	Timezone string
	Calendar calendar.Provider
}

// Directory is read-only after construction and safe for concurrent use.
type Directory struct {
	agents      map[string]*Agent
	assignments map[string]string
	emails      []string
}

// NewDirectory builds a directory from the timezone table and the agents that
// could be set up. Every agent must appear in the table.
func NewDirectory(assignments map[string]string, agents []*Agent) (*Directory, error) {
	d := &Directory{
		agents:      make(map[string]*Agent, len(agents)),
		assignments: make(map[string]string, len(assignments)),
	}
	for email, zone := range assignments {
		key := normalize(email)
		if key == "" {
			return nil, fmt.Errorf("participant with empty email")
		}
		if _, dup := d.assignments[key]; dup {
			return nil, fmt.Errorf("duplicate participant %s", email)
		}
		d.assignments[key] = zone
		d.emails = append(d.emails, key)
	}
	sort.Strings(d.emails)

	for _, a := range agents {
		key := normalize(a.Email)
		if _, ok := d.assignments[key]; !ok {
			return nil, fmt.Errorf("agent %s has no timezone assignment", a.Email)
		}
		if a.Calendar == nil {
			a.Calendar = calendar.Empty{}
		}
		d.agents[key] = a
	}
	return d, nil
}

// Lookup returns the agent for email. Unknown participants have none.
func (d *Directory) Lookup(email string) (*Agent, bool) {
	a, ok := d.agents[normalize(email)]
	return a, ok
}

// Assignments returns a copy of the participant→timezone table.
func (d *Directory) Assignments() map[string]string {
	out := make(map[string]string, len(d.assignments))
	for k, v := range d.assignments {
		out[k] = v
	}
	return out
}

// Emails lists every assigned participant, sorted.
func (d *Directory) Emails() []string {
	return append([]string(nil), d.emails...)
}

// AgentCount is the number of participants with a working calendar agent.
func (d *Directory) AgentCount() int {
	return len(d.agents)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
