// Package server provides the HTTP API, the renderer frame feed and the
// camera preview stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/capture"
	"github.com/ayusman/tandava/internal/gesture"
	"github.com/ayusman/tandava/internal/metrics"
	"github.com/ayusman/tandava/internal/server/api"
	"github.com/ayusman/tandava/internal/state"
	"github.com/ayusman/tandava/internal/store"
)

// DefaultFrameInterval paces the websocket feed at about 15 frames a second.
const DefaultFrameInterval = 66 * time.Millisecond

// Config holds the server dependencies. State is required; the rest enable
// optional routes.
type Config struct {
	StaticDir     string
	State         *state.Store
	Store         *store.Store
	Matcher       *gesture.StaticMatcher
	Preview       *capture.Preview
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
	FrameInterval time.Duration
}

// Server is the HTTP front of the application.
type Server struct {
	config  Config
	router  *mux.Router
	handler http.Handler
	logger  zerolog.Logger
	start   time.Time
}

// New creates a Server and registers its routes.
func New(config Config) *Server {
	if config.State == nil {
		config.State = state.New()
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}

	s := &Server{
		config: config,
		router: mux.NewRouter(),
		logger: config.Logger.With().Str("component", "server").Logger(),
		start:  time.Now(),
	}
	s.setupRoutes()

	s.handler = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))(s.router))

	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(s.instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	st := api.NewStateHandler(s.config.State)
	r.HandleFunc("/api/state", st.Snapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/photos", st.ListPhotos).Methods(http.MethodGet)
	r.HandleFunc("/api/photos", st.IngestPhotos).Methods(http.MethodPost)
	r.HandleFunc("/api/audio", st.SetAudio).Methods(http.MethodPut)
	r.HandleFunc("/api/playback/toggle", st.TogglePlayback).Methods(http.MethodPost)

	if s.config.Store != nil {
		th := api.NewTemplateHandler(s.config.Store, s.config.Matcher, s.logger)
		r.HandleFunc("/api/templates", th.List).Methods(http.MethodGet)
		r.HandleFunc("/api/templates/{gesture}/samples", th.Train).Methods(http.MethodPost)
		r.HandleFunc("/api/templates/{gesture}", th.Delete).Methods(http.MethodDelete)
	}

	r.Handle("/api/frames", NewFrameFeed(s.config.State, s.config.FrameInterval, s.logger)).Methods(http.MethodGet)

	if s.config.Preview != nil {
		r.Handle("/api/stream", NewStreamHandler(s.config.Preview)).Methods(http.MethodGet)
	}

	if s.config.Metrics != nil {
		r.Handle("/metrics", s.config.Metrics.Handler()).Methods(http.MethodGet)
	}

	if s.config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir))).Methods(http.MethodGet)
	}
}

// instrument records request metrics under the matched route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.config.Metrics.WrapHandler(route, next).ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error().Interface("panic", v).Msg("recovered from panic")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
