package hook

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/notify"
)

// Recorder observes hook executions.
type Recorder interface {
	HookRun(name string, err error)
}

// Runner delivers events to every subscribed hook. It implements
// notify.Notifier.
type Runner struct {
	registry *Registry
	executor *Executor
	recorder Recorder
	logger   zerolog.Logger
}

// NewRunner creates a runner. recorder may be nil.
func NewRunner(registry *Registry, executor *Executor, recorder Recorder, logger zerolog.Logger) *Runner {
	return &Runner{
		registry: registry,
		executor: executor,
		recorder: recorder,
		logger:   logger.With().Str("component", "hook").Logger(),
	}
}

// Notify runs the hooks subscribed to ev.Kind one after another. A failing
// hook does not stop the others.
func (r *Runner) Notify(ctx context.Context, ev notify.Event) error {
	var errs []error

	for _, h := range r.registry.For(ev.Kind) {
		err := r.run(ctx, h, ev)
		if r.recorder != nil {
			r.recorder.HookRun(h.Manifest.Name, err)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.logger.Debug().Str("hook", h.Manifest.Name).Str("event", string(ev.Kind)).Msg("hook ran")
	}

	return errors.Join(errs...)
}

func (r *Runner) run(ctx context.Context, h *Hook, ev notify.Event) error {
	resp, err := r.executor.Execute(ctx, h, NewRequest(h, ev))
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("hook %s reported failure: %s", h.Manifest.Name, resp.Error)
	}
	return nil
}
