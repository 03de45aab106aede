package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
enabled: true
defaultCacheDurationSeconds: 120
provider: Distributed
keyPrefix: hr
providerSettings:
  distributed:
    connectionString: redis://localhost:6379/0
    indexKeyTtlSeconds: 900
perEndpoint:
  Employees:
    absoluteTtlSeconds: 300
    slidingTtlSeconds: 30
diagnostics:
  emitCacheStatusHeader: true
  keyDisplayMode: Hash
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Equal(t, ProviderDistributed, s.Provider)
	assert.Equal(t, "hr", s.KeyPrefix)
	assert.Equal(t, 120*time.Second, s.DefaultTTL())
	assert.Equal(t, 900*time.Second, s.IndexTTL())
	assert.Equal(t, KeyDisplayHash, s.Diagnostics.KeyDisplayMode)
	// Normalized default.
	assert.Equal(t, DefaultStatusHeaderName, s.Diagnostics.HeaderName)

	e, ok := s.EndpointTTL("Employees")
	require.True(t, ok)
	assert.Equal(t, 300, e.AbsoluteTTLSeconds)
	assert.Equal(t, 30, e.SlidingTTLSeconds)
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(writeConfig(t, `enabled: true`))
	require.NoError(t, err)
	assert.Equal(t, ProviderMemory, s.Provider)
	assert.Equal(t, DefaultKeyPrefix, s.KeyPrefix)
	assert.Equal(t, 60*time.Second, s.DefaultTTL())
	assert.Equal(t, 600*time.Second, s.IndexTTL())
	assert.Equal(t, KeyDisplayRaw, s.Diagnostics.KeyDisplayMode)
}

func TestLoadUnknownProvider(t *testing.T) {
	_, err := Load(writeConfig(t, `provider: Cassandra`))
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestLoadDistributedRequiresConnectionString(t *testing.T) {
	_, err := Load(writeConfig(t, `provider: Distributed`))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUERYCACHE_ENABLED", "false")
	t.Setenv("QUERYCACHE_KEY_PREFIX", "override")
	t.Setenv("QUERYCACHE_DEFAULT_TTL", "2m")
	s, err := Load(writeConfig(t, `
enabled: true
keyPrefix: hr
`))
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.Equal(t, "override", s.KeyPrefix)
	assert.Equal(t, 120*time.Second, s.DefaultTTL())
}

func TestActive(t *testing.T) {
	assert.True(t, Settings{Enabled: true}.Active())
	assert.False(t, Settings{Enabled: false}.Active())
	// DisableCache is the kill switch and wins.
	assert.False(t, Settings{Enabled: true, DisableCache: true}.Active())
}

func TestEndpointTTLLookup(t *testing.T) {
	s := Settings{PerEndpoint: map[string]EndpointTTL{
		"Employees": {AbsoluteTTLSeconds: 300},
		"":          {AbsoluteTTLSeconds: 15},
	}}

	e, ok := s.EndpointTTL("employees")
	assert.True(t, ok)
	assert.Equal(t, 300, e.AbsoluteTTLSeconds)

	e, ok = s.EndpointTTL("Departments")
	assert.True(t, ok)
	assert.Equal(t, 15, e.AbsoluteTTLSeconds)

	_, ok = Settings{}.EndpointTTL("Employees")
	assert.False(t, ok)
}

func TestDefaultTTLClamp(t *testing.T) {
	assert.Equal(t, 60*time.Second, Settings{}.DefaultTTL())
	assert.Equal(t, 60*time.Second, Settings{DefaultCacheDurationSeconds: -1}.DefaultTTL())
	assert.Equal(t, time.Second, Settings{DefaultCacheDurationSeconds: 1}.DefaultTTL())
}

func TestProviderSnapshotIsolation(t *testing.T) {
	var current Settings
	current.Enabled = true
	p := ProviderFunc(func() Settings { return current })
	snap := p.Snapshot()
	current.Enabled = false
	// The earlier snapshot is unaffected by the reload.
	assert.True(t, snap.Enabled)
	assert.False(t, p.Snapshot().Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
