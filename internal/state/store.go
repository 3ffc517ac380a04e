// Package state holds the application state shared by the fusion engine,
// the spectrum publisher, the UI actions and the renderer feed.
package state

import (
	"errors"
	"sync"

	"github.com/ayusman/tandava/internal/hand"
	"github.com/ayusman/tandava/internal/photos"
	"github.com/ayusman/tandava/internal/spectrum"
)

// ErrNoAudioSource is returned when playback is requested without a source.
var ErrNoAudioSource = errors.New("no audio source")

// Change identifies which part of the state changed.
type Change string

const (
	ChangePower    Change = "power"
	ChangePlayback Change = "playback"
	ChangeSource   Change = "source"
	ChangePhotos   Change = "photos"
)

// Snapshot is a consistent copy of the state, shaped for the renderer.
type Snapshot struct {
	PowerOn     bool              `json:"isPowerOn"`
	Playing     bool              `json:"isPlaying"`
	AudioSource string            `json:"audioUrl,omitempty"`
	Photos      []photos.Photo    `json:"photos"`
	Hand        hand.Sample       `json:"handData"`
	Spectrum    spectrum.Spectrum `json:"audioData"`
}

// Listener is called after a change has been applied. Per-frame hand and
// spectrum updates do not notify listeners.
type Listener func(Change, Snapshot)

// Store is the application state store. Each field has a single writer
// (fusion engine, spectrum publisher or UI action), and one lock guards all
// of them.
type Store struct {
	mu          sync.RWMutex
	powerOn     bool
	playing     bool
	audioSource string
	photos      *photos.Collection
	hand        hand.Sample
	spectrum    spectrum.Spectrum

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

// New returns a store with power off, nothing playing and an idle hand.
func New() *Store {
	return &Store{
		photos:    photos.NewCollection(),
		hand:      hand.Idle(),
		spectrum:  spectrum.Spectrum{},
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(c Change) {
	snap := s.Snapshot()

	s.listenersMu.RLock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(c, snap)
	}
}

// PowerOn reports the power flag.
func (s *Store) PowerOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.powerOn
}

// TogglePower flips the power flag and returns the new value.
func (s *Store) TogglePower() bool {
	s.mu.Lock()
	s.powerOn = !s.powerOn
	on := s.powerOn
	s.mu.Unlock()

	s.notify(ChangePower)
	return on
}

// Playing reports whether playback is requested.
func (s *Store) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetPlaying sets the playback flag. Starting playback without an audio
// source returns ErrNoAudioSource.
func (s *Store) SetPlaying(playing bool) error {
	s.mu.Lock()
	if playing && s.audioSource == "" {
		s.mu.Unlock()
		return ErrNoAudioSource
	}
	changed := s.playing != playing
	s.playing = playing
	s.mu.Unlock()

	if changed {
		s.notify(ChangePlayback)
	}
	return nil
}

// TogglePlaying flips playback and returns the new flag. It is a no-op
// returning ErrNoAudioSource when no source is set.
func (s *Store) TogglePlaying() (bool, error) {
	s.mu.Lock()
	if s.audioSource == "" {
		s.mu.Unlock()
		return false, ErrNoAudioSource
	}
	s.playing = !s.playing
	playing := s.playing
	s.mu.Unlock()

	s.notify(ChangePlayback)
	return playing, nil
}

// AudioSource returns the current audio source URL, or "".
func (s *Store) AudioSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audioSource
}

// SetAudioSource replaces the audio source and starts playing it.
// An empty url clears the source and stops playback.
func (s *Store) SetAudioSource(url string) {
	s.mu.Lock()
	s.audioSource = url
	s.playing = url != ""
	s.mu.Unlock()

	s.notify(ChangeSource)
}

// IngestPhotos appends photos for urls, keeping the newest photos.MaxPhotos.
func (s *Store) IngestPhotos(urls []string) []photos.Photo {
	added := s.photos.Ingest(urls)
	if len(added) > 0 {
		s.notify(ChangePhotos)
	}
	return added
}

// Photos returns the photo collection in insertion order.
func (s *Store) Photos() []photos.Photo {
	return s.photos.List()
}

// PublishHand replaces the current hand state.
func (s *Store) PublishHand(h hand.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hand = h
}

// Hand returns the latest hand state.
func (s *Store) Hand() hand.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hand
}

// PublishSpectrum replaces the current spectrum.
func (s *Store) PublishSpectrum(sp spectrum.Spectrum) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spectrum = sp
}

// Spectrum returns the latest published spectrum.
func (s *Store) Spectrum() spectrum.Spectrum {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spectrum
}

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		PowerOn:     s.powerOn,
		Playing:     s.playing,
		AudioSource: s.audioSource,
		Hand:        s.hand,
		Spectrum:    s.spectrum,
	}
	s.mu.RUnlock()

	snap.Photos = s.photos.List()
	return snap
}
