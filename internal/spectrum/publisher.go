package spectrum

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultOpenTimeout bounds how long acquiring a graph may take.
const DefaultOpenTimeout = 30 * time.Second

// Sink receives published spectra.
type Sink interface {
	PublishSpectrum(Spectrum)
}

// Observer is notified of publisher lifecycle events.
type Observer interface {
	GraphAcquired()
	GraphReleased()
	SpectrumPublished()
}

type nopObserver struct{}

func (nopObserver) GraphAcquired()     {}
func (nopObserver) GraphReleased()     {}
func (nopObserver) SpectrumPublished() {}

// Publisher publishes one spectrum per frame while a source is set and
// playback is requested.
//
// A graph is held exactly while (source set && playing && !closed). Every
// transition out of that condition cancels the pending frame and closes the
// graph; a new graph decodes from the start of the source.
type Publisher struct {
	sched    Scheduler
	opener   Opener
	sink     Sink
	observer Observer
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	source   string
	playing  bool
	closed   bool
	graph    Graph
	frame    FrameID
	hasFrame bool
	gen      uint64
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) PublisherOption {
	return func(p *Publisher) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = l.With().Str("component", "spectrum").Logger()
	}
}

// NewPublisher creates an idle publisher.
func NewPublisher(sched Scheduler, opener Opener, sink Sink, opts ...PublisherOption) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		sched:    sched,
		opener:   opener,
		sink:     sink,
		observer: nopObserver{},
		logger:   zerolog.Nop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetSource replaces the audio source. Any held graph is released, even
// when url equals the current source.
func (p *Publisher) SetSource(url string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.source = url
	p.releaseLocked()
	p.mu.Unlock()

	p.reconcile()
}

// SetPlaying starts or stops publishing.
func (p *Publisher) SetPlaying(playing bool) {
	p.mu.Lock()
	if p.closed || p.playing == playing {
		p.mu.Unlock()
		return
	}
	p.playing = playing
	p.mu.Unlock()

	p.reconcile()
}

// Active reports whether a graph is currently held.
func (p *Publisher) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graph != nil
}

// Close releases any graph and stops the publisher for good.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	p.releaseLocked()
	return nil
}

func (p *Publisher) wantLocked() bool {
	return p.source != "" && p.playing && !p.closed
}

// reconcile acquires or releases the graph to match the desired state.
func (p *Publisher) reconcile() {
	p.mu.Lock()
	if !p.wantLocked() {
		p.releaseLocked()
		p.mu.Unlock()
		return
	}
	if p.graph != nil {
		p.mu.Unlock()
		return
	}
	p.gen++
	gen := p.gen
	source := p.source
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(p.ctx, DefaultOpenTimeout)
	graph, err := p.opener.Open(ctx, source)
	cancel()
	if err != nil {
		p.logger.Error().Err(err).Str("source", source).Msg("acquire decode graph")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// The desired state moved on while the source was loading.
	if gen != p.gen || !p.wantLocked() || p.graph != nil {
		graph.Close()
		return
	}

	p.graph = graph
	p.observer.GraphAcquired()
	p.frame = p.sched.RequestFrame(p.frameFunc(gen))
	p.hasFrame = true
	p.logger.Info().Str("source", source).Msg("decode graph acquired")
}

func (p *Publisher) frameFunc(gen uint64) FrameFunc {
	return func(now time.Time) {
		p.mu.Lock()
		if gen != p.gen || p.graph == nil {
			p.mu.Unlock()
			return
		}

		sp, err := p.graph.Frame(now)
		if err != nil {
			p.logger.Error().Err(err).Msg("decode frame")
			p.releaseLocked()
			p.mu.Unlock()
			return
		}

		p.frame = p.sched.RequestFrame(p.frameFunc(gen))
		p.hasFrame = true
		p.mu.Unlock()

		p.sink.PublishSpectrum(sp)
		p.observer.SpectrumPublished()
	}
}

// releaseLocked cancels the pending frame and closes the graph.
func (p *Publisher) releaseLocked() {
	p.gen++

	if p.hasFrame {
		p.sched.CancelFrame(p.frame)
		p.hasFrame = false
	}
	if p.graph == nil {
		return
	}
	if err := p.graph.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("close decode graph")
	}
	p.graph = nil
	p.observer.GraphReleased()
	p.logger.Info().Msg("decode graph released")
}
