package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/notify"
)

// ErrHookNotFound is returned when a requested hook cannot be found.
var ErrHookNotFound = errors.New("hook not found")

// Registry discovers and holds hooks from a directory.
type Registry struct {
	dir    string
	logger zerolog.Logger

	mu    sync.RWMutex
	hooks map[string]*Hook
}

// NewRegistry creates a registry rooted at dir.
func NewRegistry(dir string, logger zerolog.Logger) *Registry {
	return &Registry{
		dir:    dir,
		logger: logger.With().Str("component", "hook").Logger(),
		hooks:  make(map[string]*Hook),
	}
}

// Discover rescans the directory. A missing directory yields no hooks.
// Subdirectories without a readable, valid manifest are skipped.
func (r *Registry) Discover() error {
	hooks := make(map[string]*Hook)

	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		r.replace(hooks)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read hook dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		h, err := loadHook(path)
		if err != nil {
			r.logger.Warn().Err(err).Str("path", path).Msg("skipping hook")
			continue
		}
		hooks[h.Manifest.Name] = h
	}

	r.replace(hooks)
	r.logger.Info().Int("count", len(hooks)).Str("dir", r.dir).Msg("hooks discovered")
	return nil
}

func loadHook(path string) (*Hook, error) {
	data, err := os.ReadFile(filepath.Join(path, ManifestFile))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" || m.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	return &Hook{
		Manifest:   m,
		Path:       path,
		Executable: filepath.Join(path, m.Executable),
	}, nil
}

func (r *Registry) replace(hooks map[string]*Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = hooks
}

// Get returns a hook by name.
func (r *Registry) Get(name string) (*Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.hooks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHookNotFound, name)
	}
	return h, nil
}

// List returns all hooks sorted by name.
func (r *Registry) List() []*Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hooks := make([]*Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].Manifest.Name < hooks[j].Manifest.Name
	})
	return hooks
}

// For returns the hooks subscribed to kind, sorted by name.
func (r *Registry) For(kind notify.Kind) []*Hook {
	var out []*Hook
	for _, h := range r.List() {
		if h.Manifest.Wants(kind) {
			out = append(out, h)
		}
	}
	return out
}

// Dir returns the hook directory.
func (r *Registry) Dir() string {
	return r.dir
}
