// Package photos holds the bounded, in-memory photo collection shown in the scene.
package photos

import (
	"sync"

	"github.com/google/uuid"
)

// MaxPhotos is the number of most recent photos retained.
const MaxPhotos = 50

// Photo is one displayed photo. ID is random and advisory only.
type Photo struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Collection is an append-only photo list truncated to the newest MaxPhotos.
type Collection struct {
	mu     sync.RWMutex
	photos []Photo
	limit  int
	newID  func() string
}

// NewCollection creates an empty collection bounded at MaxPhotos.
func NewCollection() *Collection {
	return &Collection{
		limit: MaxPhotos,
		newID: uuid.NewString,
	}
}

// Ingest appends one photo per URL and evicts the oldest entries beyond the
// limit. No deduplication or URL validation is performed.
// It returns the photos created by this call.
func (c *Collection) Ingest(urls []string) []Photo {
	if len(urls) == 0 {
		return nil
	}

	added := make([]Photo, len(urls))
	for i, u := range urls {
		added[i] = Photo{ID: c.newID(), URL: u}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	merged := append(c.photos, added...)
	if len(merged) > c.limit {
		merged = merged[len(merged)-c.limit:]
	}
	// Copy so evicted entries don't pin the old backing array.
	c.photos = append([]Photo(nil), merged...)

	return added
}

// List returns the photos in insertion order.
func (c *Collection) List() []Photo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Photo, len(c.photos))
	copy(out, c.photos)
	return out
}

// Len returns the number of retained photos.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.photos)
}
