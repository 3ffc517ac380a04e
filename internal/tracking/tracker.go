// Package tracking turns detector output into per-frame hand samples.
package tracking

import (
	"math"
	"sync"
	"time"

	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/hand"
)

// Classifier maps a hand pose to a gesture and a confidence score.
type Classifier interface {
	Classify(h *detector.HandLandmarks) (hand.Gesture, float64)
}

// Tracker follows the most confident hand across frames.
type Tracker struct {
	classifier Classifier

	mu       sync.Mutex
	prev     hand.Vec2
	havePrev bool
	lastSeen time.Time
}

// NewTracker creates a tracker classifying with c.
func NewTracker(c Classifier) *Tracker {
	return &Tracker{classifier: c}
}

// Track builds the sample for one frame. It returns false when no hand was
// detected, which also resets velocity tracking.
func (t *Tracker) Track(hands []detector.HandLandmarks, now time.Time) (hand.Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	best := pickBest(hands)
	if best == nil {
		t.havePrev = false
		return hand.Sample{}, false
	}

	g := hand.None
	if t.classifier != nil {
		g, _ = t.classifier.Classify(best)
	}

	palm := best.PalmCenter()
	pos := hand.Vec2{X: palm.X, Y: palm.Y}

	var velocity hand.Vec2
	if t.havePrev {
		velocity = hand.Vec2{X: pos.X - t.prev.X, Y: pos.Y - t.prev.Y}
	}
	t.prev = pos
	t.havePrev = true
	t.lastSeen = now

	raw := *best
	return hand.Sample{
		Gesture:  g,
		X:        pos.X,
		Y:        pos.Y,
		Z:        best.Points[detector.Wrist].Z,
		Velocity: velocity,
		Raw:      raw,
	}, true
}

// LastSeen returns when a hand was last tracked.
func (t *Tracker) LastSeen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

// Reset forgets the previous position.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.havePrev = false
}

func pickBest(hands []detector.HandLandmarks) *detector.HandLandmarks {
	var best *detector.HandLandmarks
	bestScore := math.Inf(-1)
	for i := range hands {
		if hands[i].Score > bestScore {
			best = &hands[i]
			bestScore = hands[i].Score
		}
	}
	return best
}
