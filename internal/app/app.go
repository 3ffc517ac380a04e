// Package app assembles the gesture pipeline, the spectrum publisher, the
// notification sinks and the HTTP server around one state store.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/capture"
	"github.com/ayusman/tandava/internal/config"
	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/fusion"
	"github.com/ayusman/tandava/internal/gesture"
	"github.com/ayusman/tandava/internal/hook"
	"github.com/ayusman/tandava/internal/metrics"
	"github.com/ayusman/tandava/internal/notify"
	"github.com/ayusman/tandava/internal/server"
	"github.com/ayusman/tandava/internal/spectrum"
	"github.com/ayusman/tandava/internal/state"
	"github.com/ayusman/tandava/internal/store"
	"github.com/ayusman/tandava/internal/tracking"
)

// Options configures an App. Camera, Detector and Opener override the
// devices built from Config, mainly for tests.
type Options struct {
	Config   config.Config
	Store    *store.Store
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	Camera   capture.Camera
	Detector detector.Detector
	Opener   spectrum.Opener
}

// App owns every long-running component.
type App struct {
	cfg     config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics

	state     *state.Store
	matcher   *gesture.StaticMatcher
	engine    *fusion.Engine
	pipeline  *Pipeline
	motion    *capture.MotionDetector
	detector  detector.Detector
	preview   *capture.Preview
	scheduler *spectrum.TickerScheduler
	publisher *spectrum.Publisher
	hooks     *hook.Registry
	events    *notify.Async
	mqtt      mqtt.Client
	server    *server.Server

	unsubscribe func()

	syncMu   sync.Mutex
	want     state.Snapshot
	haveWant bool
	syncCh   chan struct{}

	closeOnce sync.Once
}

// New builds the application. Templates are loaded from the store when one
// is given, otherwise the built-in poses are used.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger

	a := &App{
		cfg:     cfg,
		logger:  logger.With().Str("component", "app").Logger(),
		metrics: opts.Metrics,
		state:   state.New(),
		preview: capture.NewPreview(),
		syncCh:  make(chan struct{}, 1),
	}

	matcher, err := loadMatcher(opts.Store)
	if err != nil {
		return nil, err
	}
	a.matcher = matcher
	a.logger.Info().Int("templates", len(matcher.Templates())).Msg("templates loaded")

	a.engine = fusion.NewEngine(cfg.FusionEngineConfig(), a.state, a.state)

	// spectrum
	opener := opts.Opener
	if opener == nil {
		opener = cfg.GraphOpener()
	}
	a.scheduler = spectrum.NewTickerScheduler(cfg.Spectrum.FrameRate)
	a.publisher = spectrum.NewPublisher(a.scheduler, opener, a.state,
		spectrum.WithObserver(a.metrics),
		spectrum.WithLogger(logger),
	)

	// notifications
	a.hooks = hook.NewRegistry(cfg.HooksDir(), logger)
	if err := a.hooks.Discover(); err != nil {
		a.logger.Warn().Err(err).Str("dir", cfg.HooksDir()).Msg("discover hooks")
	}
	sinks := notify.Fanout{
		hook.NewRunner(a.hooks, hook.NewExecutor(time.Duration(cfg.Hooks.TimeoutMs)*time.Millisecond), a.metrics, logger),
	}
	if cfg.MQTT.Broker != "" {
		n, client, err := notify.DialMQTT(notify.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("mqtt disabled")
		} else {
			a.mqtt = client
			sinks = append(sinks, n)
			a.logger.Info().Str("broker", cfg.MQTT.Broker).Msg("mqtt connected")
		}
	}
	a.events = notify.NewAsync(sinks, time.Duration(cfg.Hooks.TimeoutMs)*time.Millisecond, logger)

	// camera pipeline
	if cfg.Camera.Enabled || opts.Camera != nil {
		camera := opts.Camera
		if camera == nil {
			camera = capture.NewCamera(cfg.Camera.DeviceID, logger)
		}
		a.detector = opts.Detector
		if a.detector == nil {
			a.detector = newDetector(cfg.DetectorSettings(), logger)
		}
		a.motion = capture.NewMotionDetector(cfg.Camera.MotionThreshold)
		a.pipeline = NewPipeline(camera, a.motion, a.detector,
			tracking.NewTracker(a.matcher), a.engine, a.preview, a.metrics, logger)
	}

	a.server = server.New(server.Config{
		StaticDir: cfg.Server.StaticDir,
		State:     a.state,
		Store:     opts.Store,
		Matcher:   a.matcher,
		Preview:   a.previewIfCamera(),
		Metrics:   a.metrics,
		Logger:    logger,
	})

	a.unsubscribe = a.state.Subscribe(a.onChange)
	return a, nil
}

func loadMatcher(s *store.Store) (*gesture.StaticMatcher, error) {
	if s == nil {
		m := gesture.NewStaticMatcher()
		for _, t := range gesture.Builtin() {
			m.AddTemplate(t)
		}
		return m, nil
	}
	return s.Templates().Matcher()
}

// newDetector prefers the MediaPipe service and falls back to a detector
// that never sees a hand.
func newDetector(cfg detector.Config, logger zerolog.Logger) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("mediapipe unavailable, hand detection disabled")
		return detector.NewMockDetector()
	}
	return mp
}

func (a *App) previewIfCamera() *capture.Preview {
	if a.pipeline == nil {
		return nil
	}
	return a.preview
}

// onChange mirrors store changes into the publisher and the event sinks.
// It runs on the writer's goroutine, so publisher work is handed to
// syncLoop.
func (a *App) onChange(c state.Change, snap state.Snapshot) {
	switch c {
	case state.ChangePower:
		a.events.Notify(context.Background(), notify.Event{
			Kind:    notify.KindPowerToggled,
			PowerOn: snap.PowerOn,
			Playing: snap.Playing,
			At:      time.Now(),
		})
	case state.ChangeSource, state.ChangePlayback:
		a.syncMu.Lock()
		a.want = snap
		a.haveWant = true
		a.syncMu.Unlock()

		select {
		case a.syncCh <- struct{}{}:
		default:
		}

		a.events.Notify(context.Background(), notify.Event{
			Kind:    notify.KindPlaybackChanged,
			PowerOn: snap.PowerOn,
			Playing: snap.Playing,
			At:      time.Now(),
		})
	}
}

// syncLoop applies the latest desired source and playback to the
// publisher. Intermediate states are coalesced.
func (a *App) syncLoop(ctx context.Context) {
	var source string
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.syncCh:
		}

		a.syncMu.Lock()
		want, ok := a.want, a.haveWant
		a.haveWant = false
		a.syncMu.Unlock()
		if !ok {
			continue
		}

		if want.AudioSource != source {
			source = want.AudioSource
			a.publisher.SetPlaying(false)
			a.publisher.SetSource(source)
		}
		a.publisher.SetPlaying(want.Playing)
	}
}

// ApplyConfig applies the settings that can change at runtime: fusion
// thresholds and the motion threshold.
func (a *App) ApplyConfig(cfg config.Config) {
	a.engine.SetConfig(cfg.FusionEngineConfig())
	if a.motion != nil {
		a.motion.SetThreshold(cfg.Camera.MotionThreshold)
	}
	a.logger.Info().
		Float64("rapid_drop", cfg.Fusion.RapidDrop).
		Int("cooldown_ms", cfg.Fusion.CooldownMs).
		Int("confirm_frames", cfg.Fusion.ConfirmFrames).
		Msg("config applied")
}

// Run starts every component and blocks until ctx is cancelled or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	start(func() { a.syncLoop(ctx) })
	start(func() { a.scheduler.Run(ctx) })
	if a.pipeline != nil {
		start(func() {
			if err := a.pipeline.Run(ctx); err != nil {
				a.logger.Error().Err(err).Msg("camera pipeline stopped")
			}
		})
	}

	err := a.server.Run(ctx, a.cfg.Server.Addr)
	cancel()
	wg.Wait()
	a.Close()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases every resource. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		a.publisher.Close()
		a.events.Close()
		if a.mqtt != nil {
			a.mqtt.Disconnect(250)
		}
		if a.detector != nil {
			if err := a.detector.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("close detector")
			}
		}
		if a.motion != nil {
			a.motion.Close()
		}
	})
}

// State returns the application state store.
func (a *App) State() *state.Store {
	return a.state
}

// Engine returns the fusion engine.
func (a *App) Engine() *fusion.Engine {
	return a.engine
}

// Matcher returns the live template matcher.
func (a *App) Matcher() *gesture.StaticMatcher {
	return a.matcher
}

// Pipeline returns the camera pipeline, or nil when the camera is disabled.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// Publisher returns the spectrum publisher.
func (a *App) Publisher() *spectrum.Publisher {
	return a.publisher
}

// Scheduler returns the frame scheduler driving the publisher.
func (a *App) Scheduler() *spectrum.TickerScheduler {
	return a.scheduler
}

// Hooks returns the hook registry.
func (a *App) Hooks() *hook.Registry {
	return a.hooks
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}
