package session

import (
	"fmt"

	"github.com/banshee-data/richa/internal/attention"
	"github.com/banshee-data/richa/internal/gaze"
	"github.com/banshee-data/richa/internal/monitoring"
	"github.com/banshee-data/richa/internal/tracker"
	"github.com/banshee-data/richa/internal/zone"
)

// Renderer is told when a zone starts or stops being intersected.
// Implementations must tolerate repeated calls for the same zone.
type Renderer interface {
	Enter(zone string)
	Exit(zone string)
}

// Renderers fans calls out to several renderers in order.
type Renderers []Renderer

func (rs Renderers) Enter(zone string) {
	for _, r := range rs {
		r.Enter(zone)
	}
}

func (rs Renderers) Exit(zone string) {
	for _, r := range rs {
		r.Exit(zone)
	}
}

// Handler routes each sample through both trackers. Closest-zone
// transitions feed the aggregator; all-zone transitions only reach the
// renderer. Transitions for zones missing from the registry are dropped.
//
// A Handler is not safe for concurrent use.
type Handler struct {
	selector gaze.Selector
	zones    *zone.Registry
	agg      *attention.Aggregator
	renderer Renderer

	closest tracker.Closest
	all     tracker.All
}

// NewHandler returns a Handler for the selector's intersection views.
func NewHandler(sel gaze.Selector, zones *zone.Registry, agg *attention.Aggregator, r Renderer) *Handler {
	if r == nil {
		r = Renderers{}
	}
	return &Handler{
		selector: sel,
		zones:    zones,
		agg:      agg,
		renderer: r,
	}
}

// Feed processes one sample. The only error is an unsupported selector,
// which is a configuration fault the caller must not recover from.
func (h *Handler) Feed(s gaze.Sample) error {
	closest, all, err := gaze.Resolve(s, h.selector)
	if err != nil {
		return fmt.Errorf("failed to resolve sample %d: %w", s.Frame, err)
	}
	h.observe(closest, all)
	return nil
}

// Reset feeds the empty sample to both trackers, closing any open
// attention interval and clearing every rendered zone.
func (h *Handler) Reset() {
	h.observe(nil, nil)
}

// Current returns the closest zone the handler is tracking.
func (h *Handler) Current() string { return h.closest.Current() }

func (h *Handler) observe(closest *gaze.Intersection, all []gaze.Intersection) {
	if t, ok := h.closest.Observe(closest); ok {
		if h.known(t.Zone) {
			monitoring.Debugf("closest %s", t)
			h.agg.Feed(t.Zone, t.Event)
		}
	}

	for _, t := range h.all.Observe(all) {
		if !h.known(t.Zone) {
			continue
		}
		switch t.Event {
		case zone.Enter:
			h.renderer.Enter(t.Zone)
		case zone.Exit:
			h.renderer.Exit(t.Zone)
		}
	}
}

func (h *Handler) known(name string) bool {
	if h.zones == nil || h.zones.Has(name) {
		return true
	}
	monitoring.Debugf("ignoring unregistered zone %q", name)
	return false
}
