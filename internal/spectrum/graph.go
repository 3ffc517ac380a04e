package spectrum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Graph is an acquired decode and analysis pipeline for one source.
type Graph interface {
	// Frame advances playback to now and returns the current spectrum.
	Frame(now time.Time) (Spectrum, error)
	// Close releases the decoder.
	Close() error
}

// Opener acquires a Graph for a source URL.
type Opener interface {
	Open(ctx context.Context, url string) (Graph, error)
}

// GraphOpener builds decode graphs from fetched source bytes.
type GraphOpener struct {
	Loader   *Loader
	Analyser AnalyserConfig
	Now      func() time.Time
}

// NewGraphOpener returns a GraphOpener with default settings.
func NewGraphOpener() *GraphOpener {
	return &GraphOpener{
		Loader:   NewLoader(),
		Analyser: DefaultAnalyserConfig(),
		Now:      time.Now,
	}
}

// Open fetches the source and starts its playback clock.
func (o *GraphOpener) Open(ctx context.Context, url string) (Graph, error) {
	data, err := o.Loader.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewDecodeGraph(data, o.Analyser, o.Now())
}

// DecodeGraph plays a source from memory against the wall clock, looping at
// the end, and analyses the most recent FFTSize samples on each frame.
type DecodeGraph struct {
	data     []byte
	dec      Decoder
	analyser *Analyser
	start    time.Time
	consumed int64
	ring     []float64
	scratch  []float64
}

// NewDecodeGraph creates a graph whose playback starts at start.
func NewDecodeGraph(data []byte, cfg AnalyserConfig, start time.Time) (*DecodeGraph, error) {
	analyser, err := NewAnalyser(cfg)
	if err != nil {
		return nil, err
	}

	dec, err := NewDecoder(data)
	if err != nil {
		return nil, err
	}
	if dec.SampleRate() <= 0 {
		dec.Close()
		return nil, fmt.Errorf("invalid sample rate %d", dec.SampleRate())
	}

	return &DecodeGraph{
		data:     data,
		dec:      dec,
		analyser: analyser,
		start:    start,
		ring:     make([]float64, cfg.FFTSize),
		scratch:  make([]float64, 1024),
	}, nil
}

// SampleRate returns the sample rate of the decoded source.
func (g *DecodeGraph) SampleRate() int {
	return g.dec.SampleRate()
}

// Frame advances the decoder to the playback position at now.
// At most one second of audio is decoded per frame; a stalled caller skips
// ahead instead of catching up.
func (g *DecodeGraph) Frame(now time.Time) (Spectrum, error) {
	rate := int64(g.dec.SampleRate())
	target := int64(now.Sub(g.start).Seconds() * float64(rate))
	need := target - g.consumed
	if need > rate {
		g.consumed = target - rate
		need = rate
	}

	rewound := false
	for need > 0 {
		chunk := g.scratch
		if int64(len(chunk)) > need {
			chunk = chunk[:need]
		}

		n, err := g.dec.Read(chunk)
		if err == nil && n == 0 {
			err = io.EOF
		}
		if errors.Is(err, io.EOF) {
			// A source that is empty right after a rewind has nothing to play.
			if rewound {
				break
			}
			if err := g.rewind(); err != nil {
				return nil, err
			}
			rewound = true
			continue
		}
		if err != nil {
			return nil, err
		}

		rewound = false
		g.push(chunk[:n])
		g.consumed += int64(n)
		need -= int64(n)
	}

	return g.analyser.Analyse(g.ring), nil
}

// rewind restarts decoding from the beginning of the source.
func (g *DecodeGraph) rewind() error {
	g.dec.Close()

	dec, err := NewDecoder(g.data)
	if err != nil {
		return fmt.Errorf("rewind source: %w", err)
	}
	g.dec = dec
	return nil
}

func (g *DecodeGraph) push(samples []float64) {
	if len(samples) >= len(g.ring) {
		copy(g.ring, samples[len(samples)-len(g.ring):])
		return
	}
	copy(g.ring, g.ring[len(samples):])
	copy(g.ring[len(g.ring)-len(samples):], samples)
}

// Close releases the decoder.
func (g *DecodeGraph) Close() error {
	if g.dec == nil {
		return nil
	}
	err := g.dec.Close()
	g.dec = nil
	return err
}
