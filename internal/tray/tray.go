// Package tray shows the power and playback state in the menu bar.
package tray

import (
	"errors"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/state"
)

// View is what the menu shows for one state snapshot.
type View struct {
	Title       string
	PlayLabel   string
	PlayEnabled bool
}

// ViewOf derives the menu contents from a snapshot.
func ViewOf(snap state.Snapshot) View {
	v := View{Title: "○ Off", PlayLabel: "Play", PlayEnabled: snap.AudioSource != ""}
	if snap.PowerOn {
		v.Title = "● On"
	}
	if snap.Playing {
		v.PlayLabel = "Pause"
	}
	return v
}

// Tray is the menu bar item. Power is read-only here; only the gesture
// engine toggles it.
type Tray struct {
	state  *state.Store
	logger zerolog.Logger

	mu     sync.RWMutex
	onOpen func()
	onQuit func()

	menuPlay *systray.MenuItem
	cancel   func()
}

// New creates a tray reflecting s.
func New(s *state.Store, logger zerolog.Logger) *Tray {
	return &Tray{
		state:  s,
		logger: logger.With().Str("component", "tray").Logger(),
	}
}

// OnOpen sets the callback for the "Open UI" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the "Quit" item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It must be called from the main goroutine and
// blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTooltip("tandava")

	menuPower := systray.AddMenuItem("Power follows the closed-fist gesture", "")
	menuPower.Disable()
	systray.AddSeparator()

	t.mu.Lock()
	t.menuPlay = systray.AddMenuItem("Play", "Play or pause the audio source")
	t.mu.Unlock()
	menuOpen := systray.AddMenuItem("Open UI", "Open the scene in the browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit tandava")

	t.render(t.state.Snapshot())
	unsubscribe := t.state.Subscribe(func(_ state.Change, snap state.Snapshot) {
		t.render(snap)
	})
	t.mu.Lock()
	t.cancel = unsubscribe
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.menuPlay.ClickedCh:
				t.handlePlayPause()
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (t *Tray) render(snap state.Snapshot) {
	v := ViewOf(snap)
	systray.SetTitle(v.Title)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuPlay == nil {
		return
	}
	t.menuPlay.SetTitle(v.PlayLabel)
	if v.PlayEnabled {
		t.menuPlay.Enable()
	} else {
		t.menuPlay.Disable()
	}
}

func (t *Tray) handlePlayPause() {
	playing, err := t.state.TogglePlaying()
	if err != nil {
		if !errors.Is(err, state.ErrNoAudioSource) {
			t.logger.Error().Err(err).Msg("toggle playback")
		}
		return
	}
	t.logger.Debug().Bool("playing", playing).Msg("playback toggled from tray")
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}
