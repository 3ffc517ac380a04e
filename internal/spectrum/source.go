package spectrum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ErrUnsupportedSource is returned for source URLs with an unknown scheme.
var ErrUnsupportedSource = errors.New("unsupported audio source")

// DefaultMaxSourceBytes caps the size of a fetched audio source.
const DefaultMaxSourceBytes = 64 << 20

// Loader fetches audio sources into memory.
type Loader struct {
	Client   *http.Client
	MaxBytes int64
}

// NewLoader returns a Loader with a 30 second HTTP timeout.
func NewLoader() *Loader {
	return &Loader{
		Client:   &http.Client{Timeout: 30 * time.Second},
		MaxBytes: DefaultMaxSourceBytes,
	}
}

// Load returns the bytes behind rawURL. Supported forms are http(s) URLs,
// file URLs and plain filesystem paths.
func (l *Loader) Load(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return l.fetch(ctx, rawURL)
	case "file":
		return l.readFile(u.Path)
	case "":
		return l.readFile(rawURL)
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
	}
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch source: unexpected status %d", resp.StatusCode)
	}

	return l.readAll(resp.Body)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return l.readAll(f)
}

func (l *Loader) readAll(r io.Reader) ([]byte, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxSourceBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("source exceeds %d bytes", limit)
	}
	return data, nil
}
