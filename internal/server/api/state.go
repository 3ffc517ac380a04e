package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/tandava/internal/photos"
	"github.com/ayusman/tandava/internal/state"
)

// StateHandler serves the application state and the UI actions that write
// to it.
type StateHandler struct {
	state *state.Store
}

// NewStateHandler creates a StateHandler over s.
func NewStateHandler(s *state.Store) *StateHandler {
	return &StateHandler{state: s}
}

type ingestPhotosRequest struct {
	URLs []string `json:"urls"`
}

type photosResponse struct {
	Photos []photos.Photo `json:"photos"`
}

type audioRequest struct {
	URL string `json:"url"`
}

type playbackResponse struct {
	Playing     bool   `json:"isPlaying"`
	AudioSource string `json:"audioUrl,omitempty"`
}

// Snapshot handles GET /api/state.
func (h *StateHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// ListPhotos handles GET /api/photos.
func (h *StateHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, photosResponse{Photos: h.state.Photos()})
}

// IngestPhotos handles POST /api/photos. The response carries only the
// photos created by this request.
func (h *StateHandler) IngestPhotos(w http.ResponseWriter, r *http.Request) {
	var req ingestPhotosRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "At least one url is required")
		return
	}

	added := h.state.IngestPhotos(req.URLs)
	writeJSON(w, http.StatusCreated, photosResponse{Photos: added})
}

// SetAudio handles PUT /api/audio. The new source replaces the old one and
// starts playing.
func (h *StateHandler) SetAudio(w http.ResponseWriter, r *http.Request) {
	var req audioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	h.state.SetAudioSource(url)
	writeJSON(w, http.StatusOK, playbackResponse{Playing: h.state.Playing(), AudioSource: url})
}

// TogglePlayback handles POST /api/playback/toggle.
func (h *StateHandler) TogglePlayback(w http.ResponseWriter, r *http.Request) {
	playing, err := h.state.TogglePlaying()
	if err != nil {
		if errors.Is(err, state.ErrNoAudioSource) {
			writeError(w, http.StatusConflict, "No audio source")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to toggle playback")
		return
	}

	writeJSON(w, http.StatusOK, playbackResponse{Playing: playing, AudioSource: h.state.AudioSource()})
}
