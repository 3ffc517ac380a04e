// Package notify delivers power and playback events to external sinks.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Kind names an event.
type Kind string

const (
	KindPowerToggled    Kind = "power.toggled"
	KindPlaybackChanged Kind = "playback.changed"
)

// Event is a state transition worth telling the outside world about.
type Event struct {
	Kind    Kind      `json:"kind"`
	PowerOn bool      `json:"powerOn"`
	Playing bool      `json:"playing"`
	At      time.Time `json:"at"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, ev Event) error

func (f Func) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Fanout delivers each event to every notifier, in order, and joins the
// errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultQueueSize is the event buffer of an Async notifier.
const DefaultQueueSize = 32

// Async delivers events on a background goroutine so producers never block
// on slow sinks. Events are dropped when the queue is full.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  zerolog.Logger
	queue   chan Event
	done    chan struct{}
}

// NewAsync starts a delivery goroutine for next. Each delivery is bounded
// by timeout.
func NewAsync(next Notifier, timeout time.Duration, logger zerolog.Logger) *Async {
	a := &Async{
		next:    next,
		timeout: timeout,
		logger:  logger.With().Str("component", "notify").Logger(),
		queue:   make(chan Event, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Notify queues ev. It returns immediately.
func (a *Async) Notify(_ context.Context, ev Event) error {
	select {
	case a.queue <- ev:
	default:
		a.logger.Warn().Str("kind", string(ev.Kind)).Msg("event queue full, dropping event")
	}
	return nil
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	close(a.queue)
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)

	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Notify(ctx, ev); err != nil {
			a.logger.Error().Err(err).Str("kind", string(ev.Kind)).Msg("deliver event")
		}
		cancel()
	}
}
