package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbourkey/querycache/config"
)

func hashModeSettings() config.Settings {
	s := testSettings()
	s.Diagnostics.KeyDisplayMode = config.KeyDisplayHash
	return s
}

func TestHashIndexRoundTrip(t *testing.T) {
	c := newTestMemory(t, hashModeSettings())
	ctx := context.Background()
	idx := c.HashIndex()

	const key = "Employees:page=1:last=smith"
	require.NoError(t, idx.Track(ctx, key, EntryOptions{AbsoluteTTL: time.Minute}))

	resolved, ok := idx.TryResolve(ctx, KeyHash(key))
	require.True(t, ok)
	assert.Equal(t, key, resolved)

	require.NoError(t, idx.Remove(ctx, KeyHash(key)))
	_, ok = idx.TryResolve(ctx, KeyHash(key))
	assert.False(t, ok)

	// Removing an unknown hash stays a successful no-op.
	assert.NoError(t, idx.Remove(ctx, KeyHash(key)))
}

func TestHashIndexUnknownHash(t *testing.T) {
	c := newTestMemory(t, hashModeSettings())
	_, ok := c.HashIndex().TryResolve(context.Background(), "deadbeefdeadbeef")
	assert.False(t, ok)
}

func TestSetTracksHashInHashMode(t *testing.T) {
	c := newTestMemory(t, hashModeSettings())
	ctx := context.Background()

	const key = "Employees:page=1:last=smith"
	require.NoError(t, c.Set(ctx, key, "v", EntryOptions{AbsoluteTTL: time.Minute}))

	resolved, ok := c.HashIndex().TryResolve(ctx, KeyHash(key))
	require.True(t, ok)
	assert.Equal(t, key, resolved)
}

func TestSetDoesNotTrackHashInRawMode(t *testing.T) {
	c := newTestMemory(t, testSettings())
	ctx := context.Background()

	const key = "Employees:page=1:last=smith"
	require.NoError(t, c.Set(ctx, key, "v", EntryOptions{AbsoluteTTL: time.Minute}))
	_, ok := c.HashIndex().TryResolve(ctx, KeyHash(key))
	assert.False(t, ok)
}

func TestHashIndexDistributed(t *testing.T) {
	_, _, c := newTestDistributed(t, hashModeSettings())
	ctx := context.Background()

	const key = "Employees:page=1:last=smith"
	require.NoError(t, c.Set(ctx, key, "v", EntryOptions{AbsoluteTTL: time.Minute}))

	resolved, ok := c.HashIndex().TryResolve(ctx, KeyHash(key))
	require.True(t, ok)
	assert.Equal(t, key, resolved)
}

func TestHashEntriesStayOutOfCatalog(t *testing.T) {
	c := newTestMemory(t, hashModeSettings())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "Employees:page=1", "v", EntryOptions{AbsoluteTTL: time.Minute}))
	catalog, err := memSub(c).members(ctx, catalogKey("test"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Employees"}, catalog)
}
