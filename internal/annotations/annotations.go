// Package annotations provides time-interval tags over a continuous
// recording, e.g. spans marked bad by an operator or an artifact detector.
// The epoch pipeline consumes them only through the Provider contract.
package annotations

import (
	"sort"
	"strings"
	"time"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// Annotation is a single (onset, duration, description) tag. Onset is in
// seconds since the first available sample of the recording (the sample
// at the clock's FirstSamp offset is time zero), duration in seconds.
type Annotation struct {
	Onset       float64
	Duration    float64
	Description string
}

// End returns the end time of the annotated span.
func (a Annotation) End() float64 {
	return a.Onset + a.Duration
}

// IsBad reports whether the description marks the span as bad data.
func (a Annotation) IsBad() bool {
	return strings.HasPrefix(strings.ToLower(a.Description), "bad")
}

// Provider is the query surface consumed by the epoch pipeline. All
// window bounds are in the Annotation timebase: seconds since the first
// available sample.
type Provider interface {
	// FirstBadOverlap returns the description of the first bad-tagged
	// annotation overlapping the inclusive window [start, stop], if any.
	FirstBadOverlap(start, stop float64) (string, bool)
	// Overlapping enumerates all annotations overlapping [start, stop]
	// in onset order.
	Overlapping(start, stop float64) []Annotation
	// All enumerates every annotation in onset order.
	All() []Annotation
}

// Set is an ordered annotation collection anchored at an optional
// absolute wall-clock time.
type Set struct {
	anns     []Annotation
	origTime time.Time // zero when the recording has no absolute anchor
}

// New builds a Set, validating durations and sorting by onset.
func New(anns []Annotation, origTime time.Time) (*Set, error) {
	for _, a := range anns {
		if a.Duration < 0 {
			return nil, errors.Newf("annotation %q has negative duration %g", a.Description, a.Duration).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	sorted := make([]Annotation, len(anns))
	copy(sorted, anns)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Onset < sorted[j].Onset })
	return &Set{anns: sorted, origTime: origTime}, nil
}

// OrigTime returns the absolute anchor, zero if unset.
func (s *Set) OrigTime() time.Time {
	return s.origTime
}

// Len returns the number of annotations.
func (s *Set) Len() int {
	return len(s.anns)
}

// All returns the annotations in onset order.
func (s *Set) All() []Annotation {
	out := make([]Annotation, len(s.anns))
	copy(out, s.anns)
	return out
}

// overlaps reports inclusive interval overlap. Zero-duration annotations
// still overlap windows containing their onset.
func overlaps(a Annotation, start, stop float64) bool {
	return a.Onset <= stop && a.End() >= start
}

// FirstBadOverlap implements Provider.
func (s *Set) FirstBadOverlap(start, stop float64) (string, bool) {
	for _, a := range s.anns {
		if a.Onset > stop {
			break
		}
		if a.IsBad() && overlaps(a, start, stop) {
			return a.Description, true
		}
	}
	return "", false
}

// Overlapping implements Provider.
func (s *Set) Overlapping(start, stop float64) []Annotation {
	var out []Annotation
	for _, a := range s.anns {
		if a.Onset > stop {
			break
		}
		if overlaps(a, start, stop) {
			out = append(out, a)
		}
	}
	return out
}
