// Package spectrum decodes the current audio source and publishes a
// byte-scaled frequency spectrum once per animation frame while playback
// is active.
package spectrum

import (
	"encoding/json"
)

// Spectrum is one frame of frequency magnitudes, one byte per bin.
// Published spectra are never mutated.
type Spectrum []byte

// MarshalJSON encodes the spectrum as an array of numbers rather than base64.
func (s Spectrum) MarshalJSON() ([]byte, error) {
	bins := make([]int, len(s))
	for i, v := range s {
		bins[i] = int(v)
	}
	return json.Marshal(bins)
}

// UnmarshalJSON decodes an array of numbers.
func (s *Spectrum) UnmarshalJSON(data []byte) error {
	var bins []int
	if err := json.Unmarshal(data, &bins); err != nil {
		return err
	}
	out := make(Spectrum, len(bins))
	for i, v := range bins {
		out[i] = clampByte(float64(v))
	}
	*s = out
	return nil
}

func clampByte(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
