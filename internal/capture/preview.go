package capture

import (
	"context"
	"sync"
)

// Preview holds the most recent JPEG frame for preview clients. Writers
// replace the frame; readers wait for a newer one.
type Preview struct {
	mu      sync.Mutex
	frame   []byte
	seq     uint64
	updated chan struct{}
}

// NewPreview creates an empty preview.
func NewPreview() *Preview {
	return &Preview{updated: make(chan struct{})}
}

// Set publishes a new frame and wakes waiting readers.
func (p *Preview) Set(jpeg []byte) {
	p.mu.Lock()
	p.frame = jpeg
	p.seq++
	close(p.updated)
	p.updated = make(chan struct{})
	p.mu.Unlock()
}

// Latest returns the current frame and its sequence number. The sequence
// is zero before the first frame.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame, p.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after {
			frame, seq := p.frame, p.seq
			p.mu.Unlock()
			return frame, seq, nil
		}
		wait := p.updated
		p.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, after, ctx.Err()
		}
	}
}
