package spectrum

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultFrameRate is the display refresh rate assumed by TickerScheduler.
const DefaultFrameRate = 60

// FrameID identifies a requested frame callback.
type FrameID uint64

// FrameFunc is invoked once for a requested frame.
type FrameFunc func(now time.Time)

// Scheduler runs one-shot callbacks on the next display frame.
type Scheduler interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
}

// TickerScheduler delivers requested frame callbacks on a fixed-rate ticker.
// Callbacks requested while a frame is running are deferred to the next frame.
type TickerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	next    FrameID
	pending map[FrameID]FrameFunc
}

// NewTickerScheduler creates a scheduler ticking at fps frames per second.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		pending:  make(map[FrameID]FrameFunc),
	}
}

// RequestFrame queues fn for the next frame.
func (s *TickerScheduler) RequestFrame(fn FrameFunc) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.pending[s.next] = fn
	return s.next
}

// CancelFrame removes a queued callback. Unknown ids are ignored.
func (s *TickerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Pending returns the number of queued callbacks.
func (s *TickerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Tick runs every callback queued before the call, in request order.
func (s *TickerScheduler) Tick(now time.Time) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	due := s.pending
	s.pending = make(map[FrameID]FrameFunc)
	s.mu.Unlock()

	ids := make([]FrameID, 0, len(due))
	for id := range due {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		due[id](now)
	}
}

// Run ticks until ctx is cancelled.
func (s *TickerScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}
