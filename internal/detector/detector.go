package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector finds hands in a video frame.
type Detector interface {
	// Detect returns the hands in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds hand detection settings.
type Config struct {
	// Python and Script locate the MediaPipe service. Empty values are
	// discovered from the usual install locations.
	Python string
	Script string

	MaxHands        int
	MinConfidence   float64
	MinTrackingConf float64

	// IdleShutdown stops the service after this long without frames.
	IdleShutdown time.Duration
}

// DefaultConfig returns the default detection settings.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleShutdown:    30 * time.Second,
	}
}
