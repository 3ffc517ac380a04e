// Package hook runs external executables in response to power and playback
// events. Each hook lives in its own directory with a hook.json manifest;
// it receives one JSON request on stdin and answers with one JSON response
// on stdout.
package hook

import (
	"encoding/json"
	"time"

	"github.com/ayusman/tandava/internal/notify"
)

// ManifestFile is the manifest name looked up in each hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Events lists the event kinds the hook wants. Empty means all.
	Events []notify.Kind   `json:"events,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Wants reports whether the hook subscribes to kind.
func (m Manifest) Wants(kind notify.Kind) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, k := range m.Events {
		if k == kind {
			return true
		}
	}
	return false
}

// Request is written to the hook's stdin.
type Request struct {
	Event   notify.Kind     `json:"event"`
	PowerOn bool            `json:"powerOn"`
	Playing bool            `json:"playing"`
	At      time.Time       `json:"at"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// NewRequest builds the request for ev, carrying the hook's own config.
func NewRequest(h *Hook, ev notify.Event) *Request {
	return &Request{
		Event:   ev.Kind,
		PowerOn: ev.PowerOn,
		Playing: ev.Playing,
		At:      ev.At,
		Config:  h.Manifest.Config,
	}
}
