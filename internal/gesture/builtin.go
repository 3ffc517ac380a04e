package gesture

import (
	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/hand"
)

// BuiltinID returns the template ID used for a gesture's built-in pose.
func BuiltinID(g hand.Gesture) string {
	return "builtin-" + g.String()
}

// BuiltinPoses returns the reference pose of every classifiable gesture.
func BuiltinPoses() map[hand.Gesture]detector.HandLandmarks {
	return map[hand.Gesture]detector.HandLandmarks{
		hand.Open:     detector.OpenPalmLandmarks(),
		hand.Closed:   detector.ClosedFistLandmarks(),
		hand.Pointing: detector.PointingLandmarks(),
		hand.Pinch:    detector.PinchLandmarks(),
	}
}

// Builtin returns templates for the reference poses, in gesture order.
func Builtin() []*Template {
	poses := BuiltinPoses()

	var out []*Template
	for _, g := range hand.Gestures() {
		pose, ok := poses[g]
		if !ok {
			continue
		}
		out = append(out, &Template{
			ID:        BuiltinID(g),
			Gesture:   g,
			Landmarks: pose.Normalize().Points[:],
			Tolerance: DefaultTolerance,
		})
	}
	return out
}

// TrainedID returns the template ID used for a gesture trained from samples.
func TrainedID(g hand.Gesture) string {
	return "trained-" + g.String()
}
