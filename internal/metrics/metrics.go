// Package metrics exposes prometheus instrumentation for the gesture
// pipeline, the spectrum publisher and the HTTP API.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/tandava/internal/hand"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	handSamples       *prometheus.CounterVec
	powerToggles      prometheus.Counter
	powerState        prometheus.Gauge
	detectDuration    prometheus.Histogram
	detectErrors      prometheus.Counter
	spectrumFrames    prometheus.Counter
	graphsAcquired    prometheus.Counter
	graphsReleased    prometheus.Counter
	graphActive       prometheus.Gauge
	hookRuns          *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandava_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tandava_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		handSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandava_hand_samples_total",
			Help: "Hand samples fed to the fusion engine by gesture.",
		}, []string{"gesture"}),
		powerToggles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tandava_power_toggles_total",
			Help: "Power toggles emitted by the fusion engine.",
		}),
		powerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tandava_power_on",
			Help: "Current power state (1 on, 0 off).",
		}),
		detectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tandava_detect_duration_seconds",
			Help:    "Histogram of hand detection durations.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5},
		}),
		detectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tandava_detect_errors_total",
			Help: "Frames skipped because detection failed.",
		}),
		spectrumFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tandava_spectrum_frames_total",
			Help: "Spectra published to the state store.",
		}),
		graphsAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tandava_decode_graphs_acquired_total",
			Help: "Decode graphs acquired by the spectrum publisher.",
		}),
		graphsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tandava_decode_graphs_released_total",
			Help: "Decode graphs released by the spectrum publisher.",
		}),
		graphActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tandava_decode_graph_active",
			Help: "Whether a decode graph is currently held (1 or 0).",
		}),
		hookRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tandava_hook_runs_total",
			Help: "Hook executions by hook and outcome.",
		}, []string{"hook", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.handSamples,
		m.powerToggles,
		m.powerState,
		m.detectDuration,
		m.detectErrors,
		m.spectrumFrames,
		m.graphsAcquired,
		m.graphsReleased,
		m.graphActive,
		m.hookRuns,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack supports websocket upgrades through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Flush supports streamed responses through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WrapHandler counts requests and observes their duration under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HandSample counts one sample fed to fusion.
func (m *Metrics) HandSample(g hand.Gesture) {
	if m == nil {
		return
	}
	m.handSamples.WithLabelValues(g.String()).Inc()
}

// PowerToggled records a toggle and the resulting state.
func (m *Metrics) PowerToggled(on bool) {
	if m == nil {
		return
	}
	m.powerToggles.Inc()
	m.powerState.Set(boolGauge(on))
}

// Detect records one detector call.
func (m *Metrics) Detect(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.detectDuration.Observe(d.Seconds())
	if err != nil {
		m.detectErrors.Inc()
	}
}

// HookRun records a hook execution.
func (m *Metrics) HookRun(name string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.hookRuns.WithLabelValues(name, outcome).Inc()
}

// GraphAcquired implements spectrum.Observer.
func (m *Metrics) GraphAcquired() {
	if m == nil {
		return
	}
	m.graphsAcquired.Inc()
	m.graphActive.Set(1)
}

// GraphReleased implements spectrum.Observer.
func (m *Metrics) GraphReleased() {
	if m == nil {
		return
	}
	m.graphsReleased.Inc()
	m.graphActive.Set(0)
}

// SpectrumPublished implements spectrum.Observer.
func (m *Metrics) SpectrumPublished() {
	if m == nil {
		return
	}
	m.spectrumFrames.Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
