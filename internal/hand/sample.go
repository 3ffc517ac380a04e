// Package hand defines the per-frame hand sample exchanged between the
// tracker, the fusion engine and the renderer feed.
package hand

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Gesture is the single classification attached to a sample.
type Gesture int

const (
	None Gesture = iota
	Pinch
	Open
	Pointing
	Closed
)

var gestureNames = [...]string{
	None:     "NONE",
	Pinch:    "PINCH",
	Open:     "OPEN",
	Pointing: "POINTING",
	Closed:   "CLOSED",
}

// Gestures lists every gesture kind, NONE first.
func Gestures() []Gesture {
	return []Gesture{None, Pinch, Open, Pointing, Closed}
}

// String returns the wire name of the gesture.
func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return gestureNames[None]
	}
	return gestureNames[g]
}

// ParseGesture parses a wire name, case-insensitively.
func ParseGesture(s string) (Gesture, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range gestureNames {
		if n == name {
			return Gesture(i), nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", s)
}

// MarshalJSON encodes the gesture as its wire name.
func (g Gesture) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON decodes a wire name.
func (g *Gesture) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseGesture(s)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Vec2 is a 2D vector in normalized image space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample is one frame of hand tracking output.
//
// X and Y are always set, even when Gesture is None. Raw carries the
// tracker's landmark payload through to the renderer and is never read by
// the fusion engine.
type Sample struct {
	Gesture  Gesture `json:"gesture"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Velocity Vec2    `json:"velocity"`
	Raw      any     `json:"rawLandmarks"`
}

// Idle is the hand state shown before any sample has arrived.
func Idle() Sample {
	return Sample{Gesture: None, X: 0.5, Y: 0.5}
}
