package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/gesture"
	"github.com/ayusman/tandava/internal/hand"
	"github.com/ayusman/tandava/internal/store"
)

// TemplateHandler lists, trains and deletes gesture templates. Changes are
// written to the store and applied to the live matcher.
type TemplateHandler struct {
	store   *store.Store
	matcher *gesture.StaticMatcher
	trainer *gesture.Trainer
	logger  zerolog.Logger
}

// NewTemplateHandler creates a TemplateHandler. matcher may be nil when no
// pipeline is running.
func NewTemplateHandler(s *store.Store, matcher *gesture.StaticMatcher, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		store:   s,
		matcher: matcher,
		trainer: gesture.NewTrainer(),
		logger:  logger,
	}
}

type trainRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type templateResponse struct {
	ID        string       `json:"id"`
	Gesture   hand.Gesture `json:"gesture"`
	Tolerance float64      `json:"tolerance"`
	Samples   int          `json:"samples"`
	Builtin   bool         `json:"builtin"`
	UpdatedAt string       `json:"updated_at,omitempty"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

func toResponse(rec *store.TemplateRecord) templateResponse {
	resp := templateResponse{
		ID:        rec.ID,
		Gesture:   rec.Gesture,
		Tolerance: rec.Tolerance,
		Samples:   rec.Samples,
		Builtin:   rec.Builtin,
	}
	if !rec.UpdatedAt.IsZero() {
		resp.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

// List handles GET /api/templates.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Templates().List()
	if err != nil {
		h.logger.Error().Err(err).Msg("list templates")
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	resp := listTemplatesResponse{Templates: make([]templateResponse, 0, len(records))}
	for _, rec := range records {
		resp.Templates = append(resp.Templates, toResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Train handles POST /api/templates/{gesture}/samples. The samples are
// averaged into the gesture's trained template, replacing any earlier one.
func (h *TemplateHandler) Train(w http.ResponseWriter, r *http.Request) {
	g, ok := h.gestureVar(w, r)
	if !ok {
		return
	}

	var req trainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	hands, err := gesture.ParseSamples(req.Samples)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trained, err := h.trainer.TrainStatic(hands)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := &gesture.Template{
		ID:        gesture.TrainedID(g),
		Gesture:   g,
		Landmarks: trained.Landmarks,
		Tolerance: trained.Tolerance,
		Samples:   trained.Samples,
	}
	if err := h.store.Templates().Save(tmpl); err != nil {
		h.logger.Error().Err(err).Str("gesture", g.String()).Msg("save template")
		writeError(w, http.StatusInternalServerError, "Failed to save template")
		return
	}
	if err := h.store.Samples().Replace(tmpl.ID, req.Samples); err != nil {
		h.logger.Error().Err(err).Str("gesture", g.String()).Msg("save samples")
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}
	if h.matcher != nil {
		h.matcher.AddTemplate(tmpl)
	}

	h.logger.Info().
		Str("gesture", g.String()).
		Int("samples", trained.Samples).
		Float64("tolerance", trained.Tolerance).
		Msg("template trained")

	rec, err := h.store.Templates().Get(tmpl.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load template")
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(rec))
}

// Delete handles DELETE /api/templates/{gesture}. It removes the trained
// template; the built-in pose stays.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	g, ok := h.gestureVar(w, r)
	if !ok {
		return
	}

	if err := h.store.Templates().DeleteTrained(g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No trained template")
			return
		}
		h.logger.Error().Err(err).Str("gesture", g.String()).Msg("delete template")
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	if h.matcher != nil {
		h.matcher.RemoveTemplate(gesture.TrainedID(g))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TemplateHandler) gestureVar(w http.ResponseWriter, r *http.Request) (hand.Gesture, bool) {
	g, err := hand.ParseGesture(mux.Vars(r)["gesture"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return hand.None, false
	}
	if g == hand.None {
		writeError(w, http.StatusBadRequest, "NONE cannot be trained")
		return hand.None, false
	}
	return g, true
}
