// Package fusion turns the per-frame hand sample stream into a debounced
// power toggle while republishing the continuous hand state untouched.
package fusion

import (
	"sync"
	"time"

	"github.com/ayusman/tandava/internal/hand"
)

// Defaults for the toggle decision.
const (
	// DefaultRapidDrop is the single-frame downward Y delta (fraction of
	// frame height) that counts as a rapid downward motion.
	DefaultRapidDrop = 0.08
	// DefaultCooldown is the minimum wall-clock gap between two toggles.
	DefaultCooldown = 1000 * time.Millisecond
	// DefaultConfirmFrames is the number of consecutive qualifying frames
	// required before a toggle. 1 means the first qualifying frame fires.
	DefaultConfirmFrames = 1
	// InitialY is the vertical position assumed before any sample arrives.
	InitialY = 0.5
)

// Config holds the tunable thresholds of the toggle decision.
type Config struct {
	RapidDrop     float64
	Cooldown      time.Duration
	ConfirmFrames int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		RapidDrop:     DefaultRapidDrop,
		Cooldown:      DefaultCooldown,
		ConfirmFrames: DefaultConfirmFrames,
	}
}

func (c Config) normalized() Config {
	if c.RapidDrop <= 0 {
		c.RapidDrop = DefaultRapidDrop
	}
	if c.Cooldown < 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.ConfirmFrames < 1 {
		c.ConfirmFrames = 1
	}
	return c
}

// ToggleState is the rolling state of the toggle decision.
// The zero LastToggle stands for "never toggled".
type ToggleState struct {
	PreviousY  float64
	LastToggle time.Time
	Streak     int
}

// NewToggleState returns the state of an engine that has seen no samples.
func NewToggleState() ToggleState {
	return ToggleState{PreviousY: InitialY}
}

// Step applies one sample to the toggle state and reports whether the
// sample fires a power toggle. It has no side effects.
func Step(st ToggleState, s hand.Sample, now time.Time, cfg Config) (ToggleState, bool) {
	cfg = cfg.normalized()

	deltaY := s.Y - st.PreviousY
	rapid := deltaY > cfg.RapidDrop

	next := st
	next.PreviousY = s.Y

	if s.Gesture != hand.Closed || !rapid {
		next.Streak = 0
		return next, false
	}

	next.Streak++
	if next.Streak < cfg.ConfirmFrames {
		return next, false
	}
	if now.Sub(st.LastToggle) <= cfg.Cooldown {
		return next, false
	}

	next.LastToggle = now
	next.Streak = 0
	return next, true
}

// PowerSwitch is the owner of the power flag.
type PowerSwitch interface {
	TogglePower() bool
	PowerOn() bool
}

// HandSink receives the latest hand sample for rendering.
type HandSink interface {
	PublishHand(s hand.Sample)
}

// Result is the outcome of feeding one sample to the Engine.
type Result struct {
	Hand    hand.Sample
	Toggled bool
	PowerOn bool
}

// Engine owns a ToggleState and applies Step to every incoming sample.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	state ToggleState
	power PowerSwitch
	sink  HandSink
}

// NewEngine creates an Engine that flips power through ps and republishes
// samples to sink. sink may be nil.
func NewEngine(cfg Config, ps PowerSwitch, sink HandSink) *Engine {
	return &Engine{
		cfg:   cfg.normalized(),
		state: NewToggleState(),
		power: ps,
		sink:  sink,
	}
}

// OnSample processes one sample observed at now.
func (e *Engine) OnSample(s hand.Sample, now time.Time) Result {
	e.mu.Lock()
	next, toggled := Step(e.state, s, now, e.cfg)
	e.state = next
	e.mu.Unlock()

	res := Result{Hand: s, Toggled: toggled}
	if toggled {
		res.PowerOn = e.power.TogglePower()
	} else {
		res.PowerOn = e.power.PowerOn()
	}

	if e.sink != nil {
		e.sink.PublishHand(s)
	}
	return res
}

// State returns a copy of the current toggle state.
func (e *Engine) State() ToggleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Config returns the active thresholds.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the thresholds. The toggle state is kept.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg.normalized()
}

// Reset restores the initial toggle state, as on engine restart.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = NewToggleState()
}
