package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyser defaults, matching the browser analyser node the scene was tuned with.
const (
	DefaultFFTSize   = 256
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// AnalyserConfig configures an Analyser.
type AnalyserConfig struct {
	FFTSize   int
	Smoothing float64
	MinDB     float64
	MaxDB     float64
}

// DefaultAnalyserConfig returns the stock analyser settings.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:   DefaultFFTSize,
		Smoothing: DefaultSmoothing,
		MinDB:     DefaultMinDB,
		MaxDB:     DefaultMaxDB,
	}
}

// Validate checks the analyser settings.
func (c AnalyserConfig) Validate() error {
	if c.FFTSize < 32 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("fft size must be a power of two >= 32, got %d", c.FFTSize)
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return fmt.Errorf("smoothing must be in [0,1), got %v", c.Smoothing)
	}
	if c.MinDB >= c.MaxDB {
		return fmt.Errorf("min dB (%v) must be below max dB (%v)", c.MinDB, c.MaxDB)
	}
	return nil
}

// Analyser turns a window of mono samples into a Spectrum of FFTSize/2 bins.
// It keeps the previous frame's magnitudes for temporal smoothing.
type Analyser struct {
	cfg    AnalyserConfig
	fft    *fourier.FFT
	window []float64
	buf    []float64
	coeffs []complex128
	smooth []float64
}

// NewAnalyser creates an Analyser.
func NewAnalyser(cfg AnalyserConfig) (*Analyser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.FFTSize
	return &Analyser{
		cfg:    cfg,
		fft:    fourier.NewFFT(n),
		window: blackman(n),
		buf:    make([]float64, n),
		smooth: make([]float64, n/2),
	}, nil
}

// Bins returns the number of bins in each spectrum.
func (a *Analyser) Bins() int {
	return a.cfg.FFTSize / 2
}

// Analyse computes the spectrum of the last FFTSize samples. Shorter input
// is zero-padded at the front.
func (a *Analyser) Analyse(samples []float64) Spectrum {
	n := a.cfg.FFTSize
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	pad := n - len(samples)
	for i := 0; i < pad; i++ {
		a.buf[i] = 0
	}
	for i, s := range samples {
		a.buf[pad+i] = s * a.window[pad+i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.buf)

	out := make(Spectrum, a.Bins())
	scale := 255 / (a.cfg.MaxDB - a.cfg.MinDB)
	tau := a.cfg.Smoothing
	for k := range out {
		mag := cmplx.Abs(a.coeffs[k]) / float64(n)
		a.smooth[k] = tau*a.smooth[k] + (1-tau)*mag

		db := math.Inf(-1)
		if a.smooth[k] > 0 {
			db = 20 * math.Log10(a.smooth[k])
		}
		out[k] = clampByte(math.Floor(scale * (db - a.cfg.MinDB)))
	}
	return out
}

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	for i := range a.smooth {
		a.smooth[i] = 0
	}
}

func blackman(n int) []float64 {
	const alpha = 0.16
	a0 := (1 - alpha) / 2
	a1 := 0.5
	a2 := alpha / 2

	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
