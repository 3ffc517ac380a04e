package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/tandava/internal/hand"
	"github.com/ayusman/tandava/internal/spectrum"
)

var _ spectrum.Observer = (*Metrics)(nil)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics

	m.HandSample(hand.Closed)
	m.PowerToggled(true)
	m.Detect(time.Millisecond, errors.New("boom"))
	m.HookRun("lights", nil)
	m.GraphAcquired()
	m.GraphReleased()
	m.SpectrumPublished()
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.WrapHandler("test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.HandSample(hand.Closed)
	m.HandSample(hand.Closed)
	m.HandSample(hand.Open)
	m.PowerToggled(true)
	m.GraphAcquired()
	m.SpectrumPublished()
	m.SpectrumPublished()
	m.Detect(time.Millisecond, errors.New("boom"))
	m.HookRun("lights", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.handSamples.WithLabelValues("CLOSED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handSamples.WithLabelValues("OPEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.powerToggles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.powerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.graphActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.spectrumFrames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.detectErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hookRuns.WithLabelValues("lights", "ok")))

	m.GraphReleased()
	m.PowerToggled(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.graphActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.powerState))
}

func TestMetrics_WrapHandlerAndExposition(t *testing.T) {
	m := NewMetrics()

	h := m.WrapHandler("/api/state", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/state", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/state", "404")))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "tandava_http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
