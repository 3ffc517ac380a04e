package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/tandava/internal/app"
	"github.com/ayusman/tandava/internal/config"
	"github.com/ayusman/tandava/internal/gesture"
	"github.com/ayusman/tandava/internal/logging"
	"github.com/ayusman/tandava/internal/metrics"
	"github.com/ayusman/tandava/internal/store"
	"github.com/ayusman/tandava/internal/tray"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the camera pipeline, spectrum publisher and HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

// loadConfig reads the config file and builds the root logger.
func loadConfig(flags *rootFlags) (*config.Manager, zerolog.Logger, error) {
	mgr, err := config.Load(flags.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg := mgr.Config()

	level := cfg.Log.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger, err := logging.New(logging.Config{Level: level, Format: logging.Format(cfg.Log.Format)})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return mgr, logger, nil
}

// openStore opens the template database and makes sure the built-in poses
// are present.
func openStore(cfg config.Config, logger zerolog.Logger) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	added, err := st.Templates().Seed(gesture.Builtin())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("seed templates: %w", err)
	}
	if added > 0 {
		logger.Info().Int("added", added).Msg("built-in templates seeded")
	}
	return st, nil
}

func runServe(ctx context.Context, flags *rootFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	mgr, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}
	cfg := mgr.Config()
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir(cfg.DataDir)
	}
	if f := mgr.File(); f != "" {
		logger.Info().Str("file", f).Msg("config loaded")
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := app.New(app.Options{
		Config:  cfg,
		Store:   st,
		Metrics: metrics.NewMetrics(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	mgr.Watch(a.ApplyConfig, func(err error) {
		logger.Warn().Err(err).Msg("config reload rejected")
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.Server.Addr).Str("static", cfg.Server.StaticDir).Msg("starting")

	if !cfg.Tray.Enabled {
		return a.Run(ctx)
	}

	// the tray loop must own the main goroutine
	t := tray.New(a.State(), logger)
	t.OnQuit(stop)

	errc := make(chan error, 1)
	go func() {
		errc <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errc
}

// findWebDir looks for the UI bundle next to the working directory, then
// under the data directory.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
