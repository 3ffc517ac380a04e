// Package config loads tandava settings from YAML, environment and defaults
// using viper, and reloads them when the file changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ayusman/tandava/internal/detector"
	"github.com/ayusman/tandava/internal/fusion"
	"github.com/ayusman/tandava/internal/spectrum"
)

// EnvPrefix prefixes environment overrides, e.g. TANDAVA_SERVER_ADDR.
const EnvPrefix = "TANDAVA"

// Config is the complete application configuration.
type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	Server   ServerConfig   `mapstructure:"server"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Detector DetectorConfig `mapstructure:"detector"`
	Fusion   FusionConfig   `mapstructure:"fusion"`
	Spectrum SpectrumConfig `mapstructure:"spectrum"`
	Hooks    HooksConfig    `mapstructure:"hooks"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Log      LogConfig      `mapstructure:"log"`
	Tray     TrayConfig     `mapstructure:"tray"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type CameraConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	DeviceID        int     `mapstructure:"device_id"`
	MotionThreshold float64 `mapstructure:"motion_threshold"`
}

type DetectorConfig struct {
	// Python and Script are discovered when empty.
	Python        string  `mapstructure:"python"`
	Script        string  `mapstructure:"script"`
	MaxHands      int     `mapstructure:"max_hands"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	IdleShutdown  string  `mapstructure:"idle_shutdown"`
}

// FusionConfig mirrors fusion.Config in file-friendly units.
type FusionConfig struct {
	RapidDrop     float64 `mapstructure:"rapid_drop"`
	CooldownMs    int     `mapstructure:"cooldown_ms"`
	ConfirmFrames int     `mapstructure:"confirm_frames"`
}

type SpectrumConfig struct {
	FFTSize        int     `mapstructure:"fft_size"`
	Smoothing      float64 `mapstructure:"smoothing"`
	MinDB          float64 `mapstructure:"min_db"`
	MaxDB          float64 `mapstructure:"max_db"`
	FrameRate      int     `mapstructure:"frame_rate"`
	MaxSourceBytes int64   `mapstructure:"max_source_bytes"`
}

type HooksConfig struct {
	Dir       string `mapstructure:"dir"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// MQTTConfig configures event publishing. An empty broker disables it.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultDataDir returns ~/.tandava, or .tandava when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tandava"
	}
	return filepath.Join(home, ".tandava")
}

// Default returns the built-in configuration.
func Default() Config {
	fc := fusion.DefaultConfig()
	ac := spectrum.DefaultAnalyserConfig()
	return Config{
		DataDir: DefaultDataDir(),
		Server:  ServerConfig{Addr: ":8080"},
		Camera: CameraConfig{
			Enabled:         true,
			MotionThreshold: 1.0,
		},
		Detector: DetectorConfig{
			MaxHands:      2,
			MinConfidence: 0.5,
			IdleShutdown:  "30s",
		},
		Fusion: FusionConfig{
			RapidDrop:     fc.RapidDrop,
			CooldownMs:    int(fc.Cooldown / time.Millisecond),
			ConfirmFrames: fc.ConfirmFrames,
		},
		Spectrum: SpectrumConfig{
			FFTSize:        ac.FFTSize,
			Smoothing:      ac.Smoothing,
			MinDB:          ac.MinDB,
			MaxDB:          ac.MaxDB,
			FrameRate:      spectrum.DefaultFrameRate,
			MaxSourceBytes: spectrum.DefaultMaxSourceBytes,
		},
		Hooks: HooksConfig{TimeoutMs: 5000},
		MQTT:  MQTTConfig{ClientID: "tandava", TopicPrefix: "tandava"},
		Log:   LogConfig{Level: "info", Format: "console"},
		Tray:  TrayConfig{Enabled: false},
	}
}

// Validate checks the configuration for values the components reject.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Fusion.RapidDrop <= 0 {
		errs = append(errs, fmt.Errorf("fusion.rapid_drop must be positive, got %v", c.Fusion.RapidDrop))
	}
	if c.Fusion.CooldownMs < 0 {
		errs = append(errs, fmt.Errorf("fusion.cooldown_ms must not be negative, got %d", c.Fusion.CooldownMs))
	}
	if c.Fusion.ConfirmFrames < 1 {
		errs = append(errs, fmt.Errorf("fusion.confirm_frames must be at least 1, got %d", c.Fusion.ConfirmFrames))
	}
	if err := c.AnalyserConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("spectrum: %w", err))
	}
	if c.Spectrum.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("spectrum.frame_rate must be positive, got %d", c.Spectrum.FrameRate))
	}
	if c.Detector.IdleShutdown != "" {
		if _, err := time.ParseDuration(c.Detector.IdleShutdown); err != nil {
			errs = append(errs, fmt.Errorf("detector.idle_shutdown: %w", err))
		}
	}
	if c.Hooks.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("hooks.timeout_ms must be positive, got %d", c.Hooks.TimeoutMs))
	}
	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		errs = append(errs, errors.New("mqtt.topic_prefix is required when a broker is set"))
	}

	return errors.Join(errs...)
}

// FusionEngineConfig converts the fusion section into engine settings.
func (c Config) FusionEngineConfig() fusion.Config {
	return fusion.Config{
		RapidDrop:     c.Fusion.RapidDrop,
		Cooldown:      time.Duration(c.Fusion.CooldownMs) * time.Millisecond,
		ConfirmFrames: c.Fusion.ConfirmFrames,
	}
}

// AnalyserConfig converts the spectrum section into analyser settings.
func (c Config) AnalyserConfig() spectrum.AnalyserConfig {
	return spectrum.AnalyserConfig{
		FFTSize:   c.Spectrum.FFTSize,
		Smoothing: c.Spectrum.Smoothing,
		MinDB:     c.Spectrum.MinDB,
		MaxDB:     c.Spectrum.MaxDB,
	}
}

// DetectorSettings converts the detector section. An unparsable idle
// shutdown falls back to the detector default; Validate reports it.
func (c Config) DetectorSettings() detector.Config {
	dc := detector.DefaultConfig()
	dc.Python = c.Detector.Python
	dc.Script = c.Detector.Script
	if c.Detector.MaxHands > 0 {
		dc.MaxHands = c.Detector.MaxHands
	}
	if c.Detector.MinConfidence > 0 {
		dc.MinConfidence = c.Detector.MinConfidence
	}
	if d, err := time.ParseDuration(c.Detector.IdleShutdown); err == nil {
		dc.IdleShutdown = d
	}
	return dc
}

// GraphOpener builds the spectrum graph opener from the spectrum section.
func (c Config) GraphOpener() *spectrum.GraphOpener {
	o := spectrum.NewGraphOpener()
	o.Analyser = c.AnalyserConfig()
	if c.Spectrum.MaxSourceBytes > 0 {
		o.Loader.MaxBytes = c.Spectrum.MaxSourceBytes
	}
	return o
}

// StorePath is the SQLite database location.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "tandava.db")
}

// HooksDir is the hook manifest directory, defaulting under DataDir.
func (c Config) HooksDir() string {
	if c.Hooks.Dir != "" {
		return c.Hooks.Dir
	}
	return filepath.Join(c.DataDir, "hooks")
}

// Manager owns the viper instance and the current configuration.
type Manager struct {
	v *viper.Viper

	mu  sync.RWMutex
	cfg Config
}

// Load reads configuration from path, or from config.yaml in the default
// data directory and the working directory when path is empty. A missing
// default file is not an error.
func Load(path string) (*Manager, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDataDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	m := &Manager{v: v}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the current configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// File returns the config file in use, or "" when running on defaults.
func (m *Manager) File() string {
	return m.v.ConfigFileUsed()
}

// Watch calls fn with the new configuration whenever the config file
// changes and still validates. Invalid edits are reported through onErr and
// the previous configuration stays in effect.
func (m *Manager) Watch(fn func(Config), onErr func(error)) {
	if m.File() == "" {
		return
	}

	m.v.OnConfigChange(func(e fsnotify.Event) {
		if err := m.reload(); err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		fn(m.Config())
	})
	m.v.WatchConfig()
}

func (m *Manager) reload() error {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("data_dir", d.DataDir)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)

	v.SetDefault("camera.enabled", d.Camera.Enabled)
	v.SetDefault("camera.device_id", d.Camera.DeviceID)
	v.SetDefault("camera.motion_threshold", d.Camera.MotionThreshold)

	v.SetDefault("detector.python", d.Detector.Python)
	v.SetDefault("detector.script", d.Detector.Script)
	v.SetDefault("detector.max_hands", d.Detector.MaxHands)
	v.SetDefault("detector.min_confidence", d.Detector.MinConfidence)
	v.SetDefault("detector.idle_shutdown", d.Detector.IdleShutdown)

	v.SetDefault("fusion.rapid_drop", d.Fusion.RapidDrop)
	v.SetDefault("fusion.cooldown_ms", d.Fusion.CooldownMs)
	v.SetDefault("fusion.confirm_frames", d.Fusion.ConfirmFrames)

	v.SetDefault("spectrum.fft_size", d.Spectrum.FFTSize)
	v.SetDefault("spectrum.smoothing", d.Spectrum.Smoothing)
	v.SetDefault("spectrum.min_db", d.Spectrum.MinDB)
	v.SetDefault("spectrum.max_db", d.Spectrum.MaxDB)
	v.SetDefault("spectrum.frame_rate", d.Spectrum.FrameRate)
	v.SetDefault("spectrum.max_source_bytes", d.Spectrum.MaxSourceBytes)

	v.SetDefault("hooks.dir", d.Hooks.Dir)
	v.SetDefault("hooks.timeout_ms", d.Hooks.TimeoutMs)

	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.topic_prefix", d.MQTT.TopicPrefix)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("tray.enabled", d.Tray.Enabled)
}
