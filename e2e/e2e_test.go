package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/tandava/internal/app"
	"github.com/ayusman/tandava/internal/capture"
	"github.com/ayusman/tandava/internal/config"
	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/fusion"
	"github.com/ayusman/tandava/internal/gesture"
	"github.com/ayusman/tandava/internal/hand"
	"github.com/ayusman/tandava/internal/metrics"
	"github.com/ayusman/tandava/internal/replay"
	"github.com/ayusman/tandava/internal/spectrum"
	"github.com/ayusman/tandava/internal/store"
	"github.com/ayusman/tandava/testdata"
)

func TestE2E_ReplayFixtures(t *testing.T) {
	tests := []struct {
		name      string
		toggles   int
		finalOn   bool
		finalHand hand.Gesture
	}{
		{"fist_drop", 1, true, hand.Open},
		{"open_wave", 0, false, hand.Pinch},
		{"double_drop", 2, false, hand.Closed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := testdata.LoadReplay(tt.name)
			require.NoError(t, err)

			res := replay.Run(records, fusion.DefaultConfig())
			assert.Len(t, res.Toggles, tt.toggles)
			assert.Equal(t, tt.finalOn, res.PowerOn)
			assert.Equal(t, tt.finalHand, res.Hand.Gesture)
		})
	}
}

type constGraph struct{}

func (constGraph) Frame(time.Time) (spectrum.Spectrum, error) {
	return spectrum.Spectrum{10, 200, 30}, nil
}
func (constGraph) Close() error { return nil }

type constOpener struct{}

func (constOpener) Open(context.Context, string) (spectrum.Graph, error) {
	return constGraph{}, nil
}

// writeMarkerHook installs a hook that touches marker on every power toggle.
func writeMarkerHook(t *testing.T, dir, marker string) {
	t.Helper()

	hookDir := filepath.Join(dir, "marker")
	require.NoError(t, os.MkdirAll(hookDir, 0o755))
	manifest := `{"name":"marker","version":"1.0.0","executable":"marker.sh","events":["power.toggled"]}`
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, "hook.json"), []byte(manifest), 0o644))
	script := "#!/bin/sh\ncat > " + marker + "\necho '{\"success\":true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, "marker.sh"), []byte(script), 0o755))
}

type snapshot struct {
	PowerOn  bool        `json:"isPowerOn"`
	Playing  bool        `json:"isPlaying"`
	AudioURL string      `json:"audioUrl"`
	Hand     hand.Sample `json:"handData"`
	Audio    []int       `json:"audioData"`
	Photos   []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"photos"`
}

func getState(t *testing.T, client *http.Client, base string) snapshot {
	t.Helper()

	resp, err := client.Get(base + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var s snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func send(t *testing.T, client *http.Client, method, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell hooks are not supported on Windows")
	}

	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = tmpDir
	cfg.Camera.Enabled = false
	cfg.Server.Addr = "127.0.0.1:0"

	marker := filepath.Join(tmpDir, "power.json")
	writeMarkerHook(t, cfg.HooksDir(), marker)

	s, err := store.New(cfg.StorePath())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Templates().Seed(gesture.Builtin())
	require.NoError(t, err)

	a, err := app.New(app.Options{
		Config:   cfg,
		Store:    s,
		Metrics:  metrics.NewMetrics(),
		Logger:   zerolog.Nop(),
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
		Opener:   constOpener{},
	})
	require.NoError(t, err)
	require.Len(t, a.Hooks().List(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	ts := httptest.NewServer(a.Server())
	defer ts.Close()
	client := ts.Client()

	t.Run("InitialState", func(t *testing.T) {
		st := getState(t, client, ts.URL)
		assert.False(t, st.PowerOn)
		assert.False(t, st.Playing)
		assert.Equal(t, hand.None, st.Hand.Gesture)
		assert.Equal(t, 0.5, st.Hand.Y)
	})

	t.Run("FistDropTogglesPower", func(t *testing.T) {
		fist := detector.ClosedFistLandmarks()
		now := time.Now()
		a.Pipeline().ProcessHands([]detector.HandLandmarks{fist.Translate(0, -0.4)}, now)
		res, ok := a.Pipeline().ProcessHands([]detector.HandLandmarks{fist}, now.Add(66*time.Millisecond))
		require.True(t, ok)
		require.True(t, res.Toggled)

		st := getState(t, client, ts.URL)
		assert.True(t, st.PowerOn)
		assert.Equal(t, hand.Closed, st.Hand.Gesture)

		require.Eventually(t, func() bool {
			data, err := os.ReadFile(marker)
			return err == nil && bytes.Contains(data, []byte(`"powerOn":true`))
		}, 5*time.Second, 20*time.Millisecond, "power hook should run")
	})

	t.Run("AudioDrivesSpectrum", func(t *testing.T) {
		resp := send(t, client, http.MethodPut, ts.URL+"/api/audio", `{"url":"file:///music/song.wav"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.Eventually(t, func() bool {
			return len(getState(t, client, ts.URL).Audio) == 3
		}, 5*time.Second, 20*time.Millisecond, "spectrum should be published")

		st := getState(t, client, ts.URL)
		assert.True(t, st.Playing)
		assert.Equal(t, "file:///music/song.wav", st.AudioURL)
		assert.Equal(t, []int{10, 200, 30}, st.Audio)

		resp = send(t, client, http.MethodPost, ts.URL+"/api/playback/toggle", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Eventually(t, func() bool { return !a.Publisher().Active() }, 5*time.Second, 20*time.Millisecond)
		assert.False(t, getState(t, client, ts.URL).Playing)
	})

	t.Run("PhotosAccumulate", func(t *testing.T) {
		resp := send(t, client, http.MethodPost, ts.URL+"/api/photos", `{"urls":["a.jpg","b.jpg"]}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp = send(t, client, http.MethodPost, ts.URL+"/api/photos", `{"urls":["c.jpg"]}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		st := getState(t, client, ts.URL)
		require.Len(t, st.Photos, 3)
		assert.Equal(t, "c.jpg", st.Photos[2].URL)
	})

	t.Run("TrainTemplate", func(t *testing.T) {
		pinch := detector.PinchLandmarks()
		sample, err := json.Marshal(gesture.Sample{Landmarks: pinch.Points[:]})
		require.NoError(t, err)
		body, err := json.Marshal(map[string][]json.RawMessage{"samples": {sample, sample}})
		require.NoError(t, err)

		resp := send(t, client, http.MethodPost, ts.URL+"/api/templates/pinch/samples", string(body))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		g, _ := a.Matcher().Classify(&pinch)
		assert.Equal(t, hand.Pinch, g)

		rec, err := s.Templates().Get(gesture.TrainedID(hand.Pinch))
		require.NoError(t, err)
		assert.Equal(t, 2, rec.Samples)
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
