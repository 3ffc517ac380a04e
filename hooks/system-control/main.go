// Package main is a tandava hook for macOS. It sleeps and wakes the display
// with the virtual power switch and mutes system output while playback is
// paused.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// Request is the event sent by tandava on stdin.
type Request struct {
	Event   string          `json:"event"`
	PowerOn bool            `json:"powerOn"`
	Playing bool            `json:"playing"`
	Config  json.RawMessage `json:"config"`
}

// Response is written to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Settings come from the "config" object of hook.json.
type Settings struct {
	Display bool `json:"display"`
	Mute    bool `json:"mute"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	settings := Settings{Display: true, Mute: true}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &settings); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	var err error
	switch req.Event {
	case "power.toggled":
		if settings.Display {
			err = setDisplay(req.PowerOn)
		}
	case "playback.changed":
		if settings.Mute {
			err = setMuted(!req.Playing)
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}

	if err != nil {
		writeErrorResponse(fmt.Sprintf("event %s failed: %v", req.Event, err))
		return
	}
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// setDisplay wakes the display, or puts it to sleep.
func setDisplay(on bool) error {
	if on {
		return run("caffeinate", "-u", "-t", "1")
	}
	return run("pmset", "displaysleepnow")
}

func setMuted(muted bool) error {
	return run("osascript", "-e", fmt.Sprintf("set volume output muted %t", muted))
}
