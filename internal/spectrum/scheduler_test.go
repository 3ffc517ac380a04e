package spectrum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerScheduler_RunsInRequestOrder(t *testing.T) {
	s := NewTickerScheduler(60)
	var order []int

	for i := 1; i <= 5; i++ {
		i := i
		s.RequestFrame(func(time.Time) { order = append(order, i) })
	}
	s.Tick(time.Now())

	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
	assert.Zero(t, s.Pending())
}

func TestTickerScheduler_Cancel(t *testing.T) {
	s := NewTickerScheduler(60)
	ran := false

	id := s.RequestFrame(func(time.Time) { ran = true })
	s.CancelFrame(id)
	s.CancelFrame(id + 100)
	s.Tick(time.Now())

	assert.False(t, ran)
}

func TestTickerScheduler_RequestDuringTickWaitsForNextFrame(t *testing.T) {
	s := NewTickerScheduler(60)
	calls := 0

	var loop FrameFunc
	loop = func(time.Time) {
		calls++
		s.RequestFrame(loop)
	}
	s.RequestFrame(loop)

	s.Tick(time.Now())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Pending())

	s.Tick(time.Now())
	assert.Equal(t, 2, calls)
}

func TestTickerScheduler_Run(t *testing.T) {
	s := NewTickerScheduler(200)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan time.Time, 1)
	s.RequestFrame(func(now time.Time) { done <- now })

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame callback never ran")
	}

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}
