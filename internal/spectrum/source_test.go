package spectrum

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/song.wav" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("RIFF-bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "local.wav")
	require.NoError(t, os.WriteFile(path, []byte("local-bytes"), 0o644))

	l := NewLoader()
	ctx := context.Background()

	t.Run("http", func(t *testing.T) {
		data, err := l.Load(ctx, srv.URL+"/song.wav")
		require.NoError(t, err)
		assert.Equal(t, "RIFF-bytes", string(data))
	})

	t.Run("http status", func(t *testing.T) {
		_, err := l.Load(ctx, srv.URL+"/missing.wav")
		assert.ErrorContains(t, err, "404")
	})

	t.Run("file url", func(t *testing.T) {
		data, err := l.Load(ctx, "file://"+path)
		require.NoError(t, err)
		assert.Equal(t, "local-bytes", string(data))
	})

	t.Run("plain path", func(t *testing.T) {
		data, err := l.Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "local-bytes", string(data))
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, err := l.Load(ctx, "ftp://example.com/song.wav")
		assert.ErrorIs(t, err, ErrUnsupportedSource)
	})
}

func TestLoader_MaxBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.wav")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	l := &Loader{MaxBytes: 99}
	_, err := l.Load(context.Background(), path)
	assert.ErrorContains(t, err, "exceeds")

	l.MaxBytes = 100
	data, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, data, 100)
}
