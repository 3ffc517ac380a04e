package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/tandava/internal/fusion"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, fusion.DefaultConfig(), cfg.FusionEngineConfig())
	assert.Equal(t, 256, cfg.AnalyserConfig().FFTSize)
}

func TestConfig_Conversions(t *testing.T) {
	cfg := Default()
	cfg.Detector.MaxHands = 1
	cfg.Detector.IdleShutdown = "90s"
	cfg.Spectrum.MaxSourceBytes = 1024
	cfg.Spectrum.FFTSize = 512

	dc := cfg.DetectorSettings()
	assert.Equal(t, 1, dc.MaxHands)
	assert.Equal(t, 90*time.Second, dc.IdleShutdown)
	assert.Equal(t, 0.5, dc.MinConfidence)

	o := cfg.GraphOpener()
	assert.Equal(t, int64(1024), o.Loader.MaxBytes)
	assert.Equal(t, 512, o.Analyser.FFTSize)

	cfg.Detector.IdleShutdown = ""
	assert.Equal(t, 30*time.Second, cfg.DetectorSettings().IdleShutdown)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"zero rapid drop", func(c *Config) { c.Fusion.RapidDrop = 0 }, "rapid_drop"},
		{"negative cooldown", func(c *Config) { c.Fusion.CooldownMs = -1 }, "cooldown_ms"},
		{"zero confirm frames", func(c *Config) { c.Fusion.ConfirmFrames = 0 }, "confirm_frames"},
		{"bad fft size", func(c *Config) { c.Spectrum.FFTSize = 100 }, "spectrum"},
		{"bad idle shutdown", func(c *Config) { c.Detector.IdleShutdown = "soon" }, "idle_shutdown"},
		{"broker without prefix", func(c *Config) {
			c.MQTT.Broker = "tcp://localhost:1883"
			c.MQTT.TopicPrefix = ""
		}, "topic_prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
data_dir: `+dir+`
server:
  addr: ":9090"
fusion:
  rapid_drop: 0.1
  cooldown_ms: 500
  confirm_frames: 2
mqtt:
  broker: tcp://broker:1883
`)

	m, err := Load(path)
	require.NoError(t, err)
	cfg := m.Config()

	assert.Equal(t, path, m.File())
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, fusion.Config{RapidDrop: 0.1, Cooldown: 500 * time.Millisecond, ConfirmFrames: 2}, cfg.FusionEngineConfig())
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "tandava", cfg.MQTT.TopicPrefix, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(dir, "tandava.db"), cfg.StorePath())
	assert.Equal(t, filepath.Join(dir, "hooks"), cfg.HooksDir())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "server:\n  addr: \":9090\"\n")
	t.Setenv("TANDAVA_SERVER_ADDR", ":7070")
	t.Setenv("TANDAVA_FUSION_CONFIRM_FRAMES", "3")

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", m.Config().Server.Addr)
	assert.Equal(t, 3, m.Config().Fusion.ConfirmFrames)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	path := writeConfig(t, t.TempDir(), "fusion:\n  confirm_frames: 0\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "confirm_frames")
}

func TestManager_Watch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping file watch test in short mode")
	}

	dir := t.TempDir()
	path := writeConfig(t, dir, "fusion:\n  cooldown_ms: 1000\n")

	m, err := Load(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []Config
	var errs []error
	m.Watch(func(c Config) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	}, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})

	require.NoError(t, os.WriteFile(path, []byte("fusion:\n  cooldown_ms: 250\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1].Fusion.CooldownMs == 250
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 250, m.Config().Fusion.CooldownMs)

	require.NoError(t, os.WriteFile(path, []byte("fusion:\n  confirm_frames: 0\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 250, m.Config().Fusion.CooldownMs, "invalid edit keeps previous config")
}
