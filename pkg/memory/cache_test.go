package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrSetCachesSuccess(t *testing.T) {
	c := New[string](time.Minute)
	defer c.Stop()

	calls := 0
	fn := func() (string, error) {
		calls++
		return "Intro to Go", nil
	}

	v, err := c.GetOrSet("youtube:abc", fn)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", v)

	v, err = c.GetOrSet("youtube:abc", fn)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrSetDoesNotCacheErrors(t *testing.T) {
	c := New[int](time.Minute)
	defer c.Stop()

	_, err := c.GetOrSet("k", func() (int, error) { return 0, errors.New("upstream down") })
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestExpiredEntriesAreHidden(t *testing.T) {
	c := New[int](10 * time.Millisecond)
	defer c.Stop()

	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "media:vimeo:76979871", Key("media", "vimeo", 76979871))
}
