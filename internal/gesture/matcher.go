// Package gesture classifies hand poses by matching normalized landmarks
// against per-gesture templates.
package gesture

import (
	"math"
	"sort"
	"sync"

	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/hand"
)

// DefaultTolerance is the largest summed landmark distance accepted as a
// match. Distances are in normalized hand units, summed over 21 points.
const DefaultTolerance = 3.0

// Template is the reference pose of one gesture.
type Template struct {
	ID        string
	Gesture   hand.Gesture
	Landmarks []detector.Point3D // normalized
	Tolerance float64
	Samples   int // number of samples averaged, 0 for built-ins
}

// Match is a template within tolerance of the input.
type Match struct {
	Template *Template
	Score    float64 // 1 / (1 + Distance)
	Distance float64
}

// StaticMatcher matches hand poses against registered templates. It is safe
// for concurrent use: the pipeline matches while the API trains.
type StaticMatcher struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewStaticMatcher creates an empty matcher.
func NewStaticMatcher() *StaticMatcher {
	return &StaticMatcher{}
}

// AddTemplate registers t, replacing any template with the same ID.
func (m *StaticMatcher) AddTemplate(t *Template) {
	if t == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.templates {
		if existing.ID == t.ID {
			m.templates[i] = t
			return
		}
	}
	m.templates = append(m.templates, t)
}

// RemoveTemplate removes the template with the given ID.
func (m *StaticMatcher) RemoveTemplate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// RemoveGesture removes every template for g.
func (m *StaticMatcher) RemoveGesture(g hand.Gesture) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.templates[:0]
	for _, t := range m.templates {
		if t.Gesture != g {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(m.templates); i++ {
		m.templates[i] = nil
	}
	m.templates = kept
}

// Templates returns the registered templates.
func (m *StaticMatcher) Templates() []*Template {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Template, len(m.templates))
	copy(out, m.templates)
	return out
}

// Match returns the templates within tolerance of the hand, best first.
func (m *StaticMatcher) Match(h *detector.HandLandmarks) []Match {
	normalized := h.Normalize()
	if normalized == nil {
		return nil
	}
	input := normalized.Points[:]

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		distance := euclideanDistance(input, t.Landmarks)
		if distance > t.Tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: t,
			Score:    1.0 / (1.0 + distance),
			Distance: distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Classify returns the gesture of the best match, or hand.None.
func (m *StaticMatcher) Classify(h *detector.HandLandmarks) (hand.Gesture, float64) {
	matches := m.Match(h)
	if len(matches) == 0 {
		return hand.None, 0
	}
	return matches[0].Template.Gesture, matches[0].Score
}

// euclideanDistance sums the point-wise distances over the shorter input.
// Templates with no landmarks never match.
func euclideanDistance(a, b []detector.Point3D) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}

	n := min(len(a), len(b))
	var total float64
	for i := 0; i < n; i++ {
		dx := a[i].X - b[i].X
		dy := a[i].Y - b[i].Y
		dz := a[i].Z - b[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}
