package gaze

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSource is returned when a selector names a source other than
// Gaze or AI. There is deliberately no fallback source.
var ErrUnknownSource = errors.New("intersection source is not implemented")

// Source identifies which ray the tracker intersected with the world model.
type Source int

const (
	// SourceGaze is the measured gaze ray.
	SourceGaze Source = iota
	// SourceAI is the tracker's AI-estimated gaze ray.
	SourceAI
)

func (s Source) String() string {
	switch s {
	case SourceGaze:
		return "Gaze"
	case SourceAI:
		return "AI"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// ParseSource accepts "Gaze" or "AI" (case-insensitive).
func ParseSource(v string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "gaze":
		return SourceGaze, nil
	case "ai":
		return SourceAI, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSource, v)
	}
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Source) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseSource(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Selector picks one of the four closest views and the matching all-view.
type Selector struct {
	Source   Source `json:"source"`
	Filtered bool   `json:"filtered"`
}

func (sel Selector) String() string {
	if sel.Filtered {
		return sel.Source.String() + "/filtered"
	}
	return sel.Source.String() + "/raw"
}

// Validate reports ErrUnknownSource for anything but the four supported
// combinations.
func (sel Selector) Validate() error {
	_, _, err := Resolve(Sample{}, sel)
	return err
}

// Resolve returns the closest intersection and all intersections of s for
// the selector. Both views always come from the same (source, filtered)
// pair.
func Resolve(s Sample, sel Selector) (*Intersection, []Intersection, error) {
	switch {
	case sel.Source == SourceGaze && !sel.Filtered:
		return s.ClosestWorldIntersection, s.AllWorldIntersections, nil
	case sel.Source == SourceGaze && sel.Filtered:
		return s.FilteredClosestWorldIntersection, s.FilteredAllWorldIntersections, nil
	case sel.Source == SourceAI && !sel.Filtered:
		return s.EstimatedClosestWorldIntersection, s.EstimatedAllWorldIntersections, nil
	case sel.Source == SourceAI && sel.Filtered:
		return s.FilteredEstimatedClosestWorldIntersection, s.FilteredEstimatedAllWorldIntersections, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSource, sel)
	}
}
