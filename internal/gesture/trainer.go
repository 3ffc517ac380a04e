package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/tandava/internal/detector"
)

// ErrNoSamples is returned when training without samples.
var ErrNoSamples = errors.New("no samples provided")

// Sample is one recorded pose as submitted by the training UI.
type Sample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// Trained is the result of averaging samples into a template pose.
type Trained struct {
	Landmarks []detector.Point3D
	Tolerance float64
	Samples   int
}

// Trainer turns recorded samples into templates.
type Trainer struct{}

// NewTrainer creates a Trainer.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// ParseSamples decodes raw samples. Each must carry all 21 landmarks.
func ParseSamples(raw []json.RawMessage) ([]detector.HandLandmarks, error) {
	hands := make([]detector.HandLandmarks, 0, len(raw))
	for i, r := range raw {
		var s Sample
		if err := json.Unmarshal(r, &s); err != nil {
			return nil, fmt.Errorf("parse sample %d: %w", i, err)
		}
		if len(s.Landmarks) != detector.NumLandmarks {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(s.Landmarks), detector.NumLandmarks)
		}

		var h detector.HandLandmarks
		copy(h.Points[:], s.Landmarks)
		hands = append(hands, h)
	}
	return hands, nil
}

// TrainStatic normalizes every sample and averages them. The tolerance is
// DefaultTolerance, widened so that every training sample matches.
func (t *Trainer) TrainStatic(samples []detector.HandLandmarks) (*Trained, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	normalized := make([][]detector.Point3D, len(samples))
	for i := range samples {
		normalized[i] = samples[i].Normalize().Points[:]
	}

	averaged := make([]detector.Point3D, detector.NumLandmarks)
	n := float64(len(samples))
	for p := range averaged {
		var sum detector.Point3D
		for _, points := range normalized {
			sum.X += points[p].X
			sum.Y += points[p].Y
			sum.Z += points[p].Z
		}
		averaged[p] = detector.Point3D{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}
	}

	spread := 0.0
	for _, points := range normalized {
		spread = math.Max(spread, euclideanDistance(points, averaged))
	}

	return &Trained{
		Landmarks: averaged,
		Tolerance: math.Max(DefaultTolerance, 1.5*spread),
		Samples:   len(samples),
	}, nil
}
