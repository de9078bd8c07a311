package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

func newTestClient(t *testing.T, oembedURL string) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), config.MediaConfig{
		VimeoOEmbedURL: oembedURL,
		LookupTimeout:  2 * time.Second,
		CacheTTL:       time.Minute,
	}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestLookupVimeoUsesOEmbedAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "https://vimeo.com/76979871", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"The New Vimeo Player","duration":62,"thumbnail_url":"https://i.vimeocdn.com/x.jpg"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	meta, err := c.Lookup(context.Background(), "https://vimeo.com/76979871")
	require.NoError(t, err)
	assert.True(t, meta.Resolved)
	assert.Equal(t, "The New Vimeo Player", meta.Title)
	assert.Equal(t, 62, meta.DurationSeconds)

	_, err = c.Lookup(context.Background(), "https://player.vimeo.com/video/76979871")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookupVimeoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Lookup(context.Background(), "https://vimeo.com/11111111")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestLookupYouTubeWithoutCredentials(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")

	meta, err := c.Lookup(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.False(t, meta.Resolved)
	assert.Equal(t, "dQw4w9WgXcQ", meta.ID)
}
