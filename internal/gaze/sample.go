// Package gaze holds the eye tracker's per-frame intersection sample and the
// selection of which intersection view a session consults.
package gaze

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyLine is returned by DecodeSample for blank feed lines.
var ErrEmptyLine = errors.New("empty sample line")

// Intersection is a single world-model object hit by a gaze or AI ray.
// The points are carried through from the tracker but never interpreted.
type Intersection struct {
	ObjectName  string     `json:"object_name"`
	WorldPoint  [3]float64 `json:"world_point,omitempty"`
	ObjectPoint [2]float64 `json:"object_point,omitempty"`
}

// Sample is one frame from the tracker. Each closest view is nil when there
// is no intersection; each all-view is empty when nothing is intersected.
// The zero Sample is the reset sample.
type Sample struct {
	Frame uint64 `json:"frame,omitempty"`

	ClosestWorldIntersection                  *Intersection `json:"closest_world_intersection"`
	FilteredClosestWorldIntersection          *Intersection `json:"filtered_closest_world_intersection"`
	EstimatedClosestWorldIntersection         *Intersection `json:"estimated_closest_world_intersection"`
	FilteredEstimatedClosestWorldIntersection *Intersection `json:"filtered_estimated_closest_world_intersection"`

	AllWorldIntersections                  []Intersection `json:"all_world_intersections"`
	FilteredAllWorldIntersections          []Intersection `json:"filtered_all_world_intersections"`
	EstimatedAllWorldIntersections         []Intersection `json:"estimated_all_world_intersections"`
	FilteredEstimatedAllWorldIntersections []Intersection `json:"filtered_estimated_all_world_intersections"`
}

// IsReset reports whether every view of s is absent or empty.
func (s Sample) IsReset() bool {
	return s.ClosestWorldIntersection == nil &&
		s.FilteredClosestWorldIntersection == nil &&
		s.EstimatedClosestWorldIntersection == nil &&
		s.FilteredEstimatedClosestWorldIntersection == nil &&
		len(s.AllWorldIntersections) == 0 &&
		len(s.FilteredAllWorldIntersections) == 0 &&
		len(s.EstimatedAllWorldIntersections) == 0 &&
		len(s.FilteredEstimatedAllWorldIntersections) == 0
}

// DecodeSample parses one line of the JSON sample feed.
func DecodeSample(line string) (Sample, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Sample{}, ErrEmptyLine
	}
	var s Sample
	if err := json.Unmarshal([]byte(line), &s); err != nil {
		return Sample{}, fmt.Errorf("failed to unmarshal sample: %w", err)
	}
	return s, nil
}

// Names returns the object names of xs in order, duplicates included.
func Names(xs []Intersection) []string {
	names := make([]string, 0, len(xs))
	for _, x := range xs {
		names = append(names, x.ObjectName)
	}
	return names
}
