// Package zone defines the named cockpit regions ("planes") that gaze
// attention is tracked against and the transitions raised for them.
package zone

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultNames are the cockpit zones of the simulator mock-up.
var DefaultNames = []string{
	"Windshield",
	"LeftMirror",
	"LeftDashboard",
	"RearView",
	"CentralConsole",
	"RightMirror",
}

// Event is a zone membership change.
type Event int

const (
	Enter Event = iota
	Exit
)

func (e Event) String() string {
	switch e {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Transition is an Event for one zone.
type Transition struct {
	Zone  string
	Event Event
}

func (t Transition) String() string {
	return t.Event.String() + " " + t.Zone
}

// Registry is the fixed set of zones known for a session.
type Registry struct {
	names map[string]struct{}
}

// NewRegistry builds a registry from zone names. Blank names are rejected,
// duplicates collapse.
func NewRegistry(names []string) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("zone name must not be blank")
		}
		r.names[n] = struct{}{}
	}
	return r, nil
}

// Has reports whether name is a registered zone.
func (r *Registry) Has(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Names returns the registered zone names sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered zones.
func (r *Registry) Len() int { return len(r.names) }
