package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadComputesOnMissThenHits(t *testing.T) {
	c := newTestMemory(t, testSettings())
	loader := NewLoader(c)
	ctx := context.Background()
	opts := EntryOptions{AbsoluteTTL: time.Minute}

	var calls int32
	invoke := func(ctx context.Context) (string, bool, error) {
		atomic.AddInt32(&calls, 1)
		return "computed", true, nil
	}

	val, found, err := Load(ctx, loader, "Employees:page=1", opts, invoke)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "computed", val)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Second call is served from cache.
	val, found, err = Load(ctx, loader, "Employees:page=1", opts, invoke)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "computed", val)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestLoadNotFoundIsNotCached(t *testing.T) {
	c := newTestMemory(t, testSettings())
	loader := NewLoader(c)
	ctx := context.Background()

	var calls int32
	invoke := func(ctx context.Context) (string, bool, error) {
		atomic.AddInt32(&calls, 1)
		return "", false, nil
	}

	for i := 0; i < 2; i++ {
		_, found, err := Load(ctx, loader, "k", EntryOptions{AbsoluteTTL: time.Minute}, invoke)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestLoadPropagatesInvokeError(t *testing.T) {
	c := newTestMemory(t, testSettings())
	loader := NewLoader(c)

	wantErr := assert.AnError
	_, found, err := Load(context.Background(), loader, "k", EntryOptions{AbsoluteTTL: time.Minute},
		func(ctx context.Context) (string, bool, error) {
			return "", false, wantErr
		})
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, found)

	// Nothing was cached.
	hit, _ := c.Get(context.Background(), "k")
	assert.Nil(t, hit)
}

func TestLoadUncacheableOptionsStillComputes(t *testing.T) {
	c := newTestMemory(t, testSettings())
	loader := NewLoader(c)
	ctx := context.Background()

	var calls int32
	invoke := func(ctx context.Context) (string, bool, error) {
		atomic.AddInt32(&calls, 1)
		return "computed", true, nil
	}

	for i := 0; i < 2; i++ {
		val, found, err := Load(ctx, loader, "k", EntryOptions{}, invoke)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "computed", val)
	}
	// Zero TTL means nothing was written, so every call computes.
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestLoadCollapsesConcurrentMisses(t *testing.T) {
	c := newTestMemory(t, testSettings())
	loader := NewLoader(c)
	opts := EntryOptions{AbsoluteTTL: time.Minute}

	var calls int32
	start := make(chan struct{})
	invoke := func(ctx context.Context) (string, bool, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
		return "computed", true, nil
	}

	const workers = 10
	var wg sync.WaitGroup
	results := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			val, found, err := Load(context.Background(), loader, "k", opts, invoke)
			assert.NoError(t, err)
			assert.True(t, found)
			results[i] = val
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, val := range results {
		assert.Equal(t, "computed", val)
	}
}
