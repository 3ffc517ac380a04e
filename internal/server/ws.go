package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/tandava/internal/hand"
	"github.com/ayusman/tandava/internal/photos"
	"github.com/ayusman/tandava/internal/spectrum"
	"github.com/ayusman/tandava/internal/state"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local renderer
	},
}

// Frame is one message of the renderer feed.
type Frame struct {
	Hand      hand.Sample       `json:"hand"`
	Spectrum  spectrum.Spectrum `json:"spectrum"`
	Power     bool              `json:"power"`
	Playing   bool              `json:"playing"`
	Photos    []photos.Photo    `json:"photos"`
	Timestamp int64             `json:"timestamp"`
}

// FrameFrom shapes a state snapshot for the feed.
func FrameFrom(snap state.Snapshot, now time.Time) Frame {
	return Frame{
		Hand:      snap.Hand,
		Spectrum:  snap.Spectrum,
		Power:     snap.PowerOn,
		Playing:   snap.Playing,
		Photos:    snap.Photos,
		Timestamp: now.UnixMilli(),
	}
}

// FrameFeed pushes a state snapshot to each websocket client every
// interval.
type FrameFeed struct {
	state    *state.Store
	interval time.Duration
	logger   zerolog.Logger
}

// NewFrameFeed creates the /api/frames handler.
func NewFrameFeed(s *state.Store, interval time.Duration, logger zerolog.Logger) *FrameFeed {
	return &FrameFeed{state: s, interval: interval, logger: logger}
}

func (f *FrameFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// The renderer never sends; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case now := <-ticker.C:
			conn.SetWriteDeadline(now.Add(writeWait))
			if err := conn.WriteJSON(FrameFrom(f.state.Snapshot(), now)); err != nil {
				f.logger.Debug().Err(err).Msg("frame feed client gone")
				return
			}
		}
	}
}
