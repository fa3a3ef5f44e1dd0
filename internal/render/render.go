// Package render receives zone highlight changes from the all-zones
// tracker. Highlights keeps the set of lit zones for the operator API; Log
// writes each change to the diagnostic log.
package render

import (
	"sort"

	"github.com/banshee-data/richa/internal/monitoring"
)

// Highlights tracks which zones are currently lit. Repeated Enter or Exit
// calls for a zone are harmless. It is not safe for concurrent use.
type Highlights struct {
	lit map[string]struct{}
}

// NewHighlights returns an empty highlight set.
func NewHighlights() *Highlights {
	return &Highlights{lit: make(map[string]struct{})}
}

func (h *Highlights) Enter(zone string) { h.lit[zone] = struct{}{} }
func (h *Highlights) Exit(zone string)  { delete(h.lit, zone) }

// Active returns the lit zones sorted by name.
func (h *Highlights) Active() []string {
	out := make([]string, 0, len(h.lit))
	for z := range h.lit {
		out = append(out, z)
	}
	sort.Strings(out)
	return out
}

// Log reports highlight changes through monitoring.Logf.
type Log struct{}

func (Log) Enter(zone string) { monitoring.Logf("zone %s highlighted", zone) }
func (Log) Exit(zone string)  { monitoring.Logf("zone %s cleared", zone) }
