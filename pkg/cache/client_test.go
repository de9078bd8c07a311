package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheIncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Increment(ctx, "gen")
		}()
	}
	wg.Wait()

	got, err := c.Get(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, "50", got)
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	type entry struct {
		Rank   int `json:"rank"`
		Points int `json:"points"`
	}
	require.NoError(t, SetJSON(ctx, c, "board", []entry{{Rank: 1, Points: 120}}, time.Minute))

	var out []entry
	require.NoError(t, GetJSON(ctx, c, "board", &out))
	assert.Equal(t, []entry{{Rank: 1, Points: 120}}, out)

	err := GetJSON(ctx, c, "missing", &out)
	assert.ErrorIs(t, err, ErrMiss)
}
