package capture

import (
	"sync"
	"time"
)

const (
	DefaultIdleFPS     = 5
	DefaultActiveFPS   = 15
	DefaultIdleTimeout = 2 * time.Second
)

// Pacer switches the capture rate between idle and active. Motion moves it
// to the active rate at once; it falls back to idle after IdleTimeout
// without motion.
type Pacer struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	mu         sync.Mutex
	active     bool
	lastMotion time.Time
}

// NewPacer returns a pacer with the default rates, starting idle.
func NewPacer() *Pacer {
	return &Pacer{
		IdleFPS:     DefaultIdleFPS,
		ActiveFPS:   DefaultActiveFPS,
		IdleTimeout: DefaultIdleTimeout,
	}
}

// Observe records whether the latest frame had motion and returns the
// frame rate to use next, plus whether it changed.
func (p *Pacer) Observe(motion bool, now time.Time) (fps int, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	was := p.active
	if motion {
		p.lastMotion = now
		p.active = true
	} else if p.active && now.Sub(p.lastMotion) > p.IdleTimeout {
		p.active = false
	}

	return p.fpsLocked(), was != p.active
}

// Active reports whether the pacer is at the active rate.
func (p *Pacer) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// FPS returns the current rate.
func (p *Pacer) FPS() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fpsLocked()
}

// Interval returns the ticker period for the current rate.
func (p *Pacer) Interval() time.Duration {
	return time.Second / time.Duration(p.FPS())
}

func (p *Pacer) fpsLocked() int {
	if p.active {
		if p.ActiveFPS > 0 {
			return p.ActiveFPS
		}
		return DefaultActiveFPS
	}
	if p.IdleFPS > 0 {
		return p.IdleFPS
	}
	return DefaultIdleFPS
}
