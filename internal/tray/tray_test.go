package tray

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/state"
)

func TestViewOf(t *testing.T) {
	tests := []struct {
		name string
		snap state.Snapshot
		want View
	}{
		{
			name: "initial",
			snap: state.Snapshot{},
			want: View{Title: "○ Off", PlayLabel: "Play", PlayEnabled: false},
		},
		{
			name: "powered with source",
			snap: state.Snapshot{PowerOn: true, AudioSource: "file:///a.wav"},
			want: View{Title: "● On", PlayLabel: "Play", PlayEnabled: true},
		},
		{
			name: "playing",
			snap: state.Snapshot{AudioSource: "file:///a.wav", Playing: true},
			want: View{Title: "○ Off", PlayLabel: "Pause", PlayEnabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViewOf(tt.snap); got != tt.want {
				t.Errorf("ViewOf() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTray_PlayPause(t *testing.T) {
	s := state.New()
	tr := New(s, zerolog.Nop())

	// no source: ignored
	tr.handlePlayPause()
	if s.Playing() {
		t.Fatal("play without a source should be ignored")
	}

	s.SetAudioSource("file:///a.wav")
	tr.handlePlayPause()
	if s.Playing() {
		t.Error("play/pause should pause a playing source")
	}
	tr.handlePlayPause()
	if !s.Playing() {
		t.Error("play/pause should resume")
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(state.New(), zerolog.Nop())

	opened := 0
	tr.OnOpen(func() { opened++ })
	tr.call(func() func() { return tr.onOpen })
	if opened != 1 {
		t.Errorf("open callback called %d times, want 1", opened)
	}

	// unset callbacks are a no-op
	tr.call(func() func() { return tr.onQuit })
}
