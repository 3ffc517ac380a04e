package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/tandava/internal/capture"
	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/fusion"
	"github.com/ayusman/tandava/internal/hand"
	"github.com/ayusman/tandava/internal/metrics"
	"github.com/ayusman/tandava/internal/tracking"
)

const previewQuality = 70

// Pipeline turns camera frames into fusion engine samples.
//
// Each tick reads a frame and runs motion detection. Motion switches the
// pacer to the active rate; while active, hands are detected, tracked and
// fed to the engine. Two seconds without motion drop back to idle.
type Pipeline struct {
	camera   capture.Camera
	motion   *capture.MotionDetector
	pacer    *capture.Pacer
	detector detector.Detector
	tracker  *tracking.Tracker
	engine   *fusion.Engine
	preview  *capture.Preview
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewPipeline wires the stages. preview and m may be nil.
func NewPipeline(
	camera capture.Camera,
	motion *capture.MotionDetector,
	d detector.Detector,
	tracker *tracking.Tracker,
	engine *fusion.Engine,
	preview *capture.Preview,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		camera:   camera,
		motion:   motion,
		pacer:    capture.NewPacer(),
		detector: d,
		tracker:  tracker,
		engine:   engine,
		preview:  preview,
		metrics:  m,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Pacer returns the frame rate controller.
func (p *Pipeline) Pacer() *capture.Pacer {
	return p.pacer
}

// Run opens the camera and processes frames until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.camera.Open(); err != nil {
		return err
	}
	defer func() {
		if err := p.camera.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("close camera")
		}
	}()
	p.camera.SetFPS(p.pacer.FPS())

	ticker := time.NewTicker(p.pacer.Interval())
	defer ticker.Stop()

	p.logger.Info().Int("fps", p.pacer.FPS()).Msg("pipeline started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("pipeline stopped")
			return nil
		case now := <-ticker.C:
			frame, err := p.camera.ReadFrame()
			if err != nil {
				p.logger.Debug().Err(err).Msg("read frame")
				continue
			}

			if p.ProcessFrame(frame, now) {
				p.camera.SetFPS(p.pacer.FPS())
				ticker.Reset(p.pacer.Interval())
			}
			frame.Close()
		}
	}
}

// ProcessFrame runs one frame through the pipeline and reports whether the
// frame rate changed. The caller keeps ownership of frame.
func (p *Pipeline) ProcessFrame(frame *gocv.Mat, now time.Time) bool {
	if p.preview != nil {
		if jpeg, err := capture.EncodeJPEG(frame, previewQuality); err == nil {
			p.preview.Set(jpeg)
		}
	}

	motion, changed := p.motion.Detect(frame)
	fps, rateChanged := p.pacer.Observe(motion, now)
	if rateChanged {
		p.logger.Debug().Int("fps", fps).Float64("changed_pct", changed).Msg("frame rate switched")
		if !p.pacer.Active() {
			p.tracker.Reset()
		}
	}

	if !p.pacer.Active() || p.detector == nil {
		return rateChanged
	}

	start := time.Now()
	hands, err := p.detector.Detect(frame)
	p.metrics.Detect(time.Since(start), err)
	if err != nil {
		p.logger.Warn().Err(err).Msg("detect hands")
		return rateChanged
	}

	p.ProcessHands(hands, now)
	return rateChanged
}

// ProcessHands tracks detected hands and feeds the resulting sample to the
// engine. Frames without hands produce no sample.
func (p *Pipeline) ProcessHands(hands []detector.HandLandmarks, now time.Time) (fusion.Result, bool) {
	sample, ok := p.tracker.Track(hands, now)
	if !ok {
		return fusion.Result{}, false
	}
	return p.Feed(sample, now), true
}

// Feed passes one sample to the engine.
func (p *Pipeline) Feed(s hand.Sample, now time.Time) fusion.Result {
	p.metrics.HandSample(s.Gesture)

	res := p.engine.OnSample(s, now)
	if res.Toggled {
		p.metrics.PowerToggled(res.PowerOn)
		p.logger.Info().
			Bool("power_on", res.PowerOn).
			Float64("y", s.Y).
			Float64("velocity_y", s.Velocity.Y).
			Msg("power toggled")
	}
	return res
}
