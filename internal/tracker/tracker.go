// Package tracker turns the per-frame intersection views into zone
// membership transitions.
//
// Closest follows the single nearest zone and is the input to attention
// aggregation. All follows every zone intersected in a frame and only
// drives highlighting. Neither tracker is safe for concurrent use; a session
// feeds them from one goroutine.
package tracker

import (
	"sort"

	"github.com/banshee-data/richa/internal/gaze"
	"github.com/banshee-data/richa/internal/zone"
)

// Closest holds the name of the zone currently closest to the ray.
type Closest struct {
	current string
}

// Current returns the active zone name, or "" when none.
func (c *Closest) Current() string { return c.current }

// Observe updates the tracker with one frame's closest intersection and
// returns the transition it caused, if any.
//
// Moving from one zone straight to another yields only an Enter for the new
// zone; the previous zone gets no Exit.
func (c *Closest) Observe(closest *gaze.Intersection) (zone.Transition, bool) {
	if closest != nil {
		if closest.ObjectName == c.current {
			return zone.Transition{}, false
		}
		c.current = closest.ObjectName
		return zone.Transition{Zone: c.current, Event: zone.Enter}, true
	}
	if c.current == "" {
		return zone.Transition{}, false
	}
	t := zone.Transition{Zone: c.current, Event: zone.Exit}
	c.current = ""
	return t, true
}

// All holds the set of zones intersected in the last frame.
type All struct {
	active map[string]struct{}
}

// Active returns the currently intersected zone names, sorted.
func (a *All) Active() []string {
	return sortedKeys(a.active)
}

// Observe replaces the active set with the names in all and returns Exits
// for names that dropped out followed by Enters for names that appeared.
// Both groups are computed against the set from before this frame and are
// sorted by name. Names present in both frames produce nothing.
func (a *All) Observe(all []gaze.Intersection) []zone.Transition {
	next := make(map[string]struct{}, len(all))
	for _, x := range all {
		next[x.ObjectName] = struct{}{}
	}

	var out []zone.Transition
	for _, name := range sortedKeys(a.active) {
		if _, ok := next[name]; !ok {
			out = append(out, zone.Transition{Zone: name, Event: zone.Exit})
		}
	}
	for _, name := range sortedKeys(next) {
		if _, ok := a.active[name]; !ok {
			out = append(out, zone.Transition{Zone: name, Event: zone.Enter})
		}
	}

	a.active = next
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
