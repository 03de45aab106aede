package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harbourkey/querycache/config"
)

func TestResolveEntryOptionsDisabled(t *testing.T) {
	opts := ResolveEntryOptions(config.Settings{Enabled: false}, "Employees")
	assert.False(t, opts.Cacheable())
	assert.Zero(t, opts.AbsoluteTTL)

	opts = ResolveEntryOptions(config.Settings{Enabled: true, DisableCache: true}, "Employees")
	assert.False(t, opts.Cacheable())
}

func TestResolveEntryOptionsDefaults(t *testing.T) {
	opts := ResolveEntryOptions(config.Settings{Enabled: true}, "Employees")
	assert.Equal(t, 60*time.Second, opts.AbsoluteTTL)
	assert.Zero(t, opts.SlidingTTL)

	opts = ResolveEntryOptions(config.Settings{Enabled: true, DefaultCacheDurationSeconds: -3}, "Employees")
	assert.Equal(t, 60*time.Second, opts.AbsoluteTTL)

	opts = ResolveEntryOptions(config.Settings{Enabled: true, DefaultCacheDurationSeconds: 120}, "Employees")
	assert.Equal(t, 120*time.Second, opts.AbsoluteTTL)
}

func TestResolveEntryOptionsPerEndpoint(t *testing.T) {
	s := config.Settings{
		Enabled:                     true,
		DefaultCacheDurationSeconds: 60,
		PerEndpoint: map[string]config.EndpointTTL{
			"Employees": {AbsoluteTTLSeconds: 300, SlidingTTLSeconds: 30},
			"":          {AbsoluteTTLSeconds: 15},
		},
	}

	opts := ResolveEntryOptions(s, "Employees")
	assert.Equal(t, 300*time.Second, opts.AbsoluteTTL)
	assert.Equal(t, 30*time.Second, opts.SlidingTTL)

	// Case-insensitive lookup.
	opts = ResolveEntryOptions(s, "EMPLOYEES")
	assert.Equal(t, 300*time.Second, opts.AbsoluteTTL)

	// Unknown endpoint falls back to the empty-string entry.
	opts = ResolveEntryOptions(s, "Departments")
	assert.Equal(t, 15*time.Second, opts.AbsoluteTTL)
	assert.Zero(t, opts.SlidingTTL)
}

func TestResolveEntryOptionsSlidingOnlyWhenPositive(t *testing.T) {
	s := config.Settings{
		Enabled: true,
		PerEndpoint: map[string]config.EndpointTTL{
			"Employees": {AbsoluteTTLSeconds: 300, SlidingTTLSeconds: 0},
		},
	}
	opts := ResolveEntryOptions(s, "Employees")
	assert.Equal(t, 300*time.Second, opts.AbsoluteTTL)
	assert.Zero(t, opts.SlidingTTL)
}

func TestResolveEntryOptionsEndpointWithoutAbsolute(t *testing.T) {
	s := config.Settings{
		Enabled:                     true,
		DefaultCacheDurationSeconds: 45,
		PerEndpoint: map[string]config.EndpointTTL{
			"Employees": {SlidingTTLSeconds: 10},
		},
	}
	opts := ResolveEntryOptions(s, "Employees")
	assert.Equal(t, 45*time.Second, opts.AbsoluteTTL)
	assert.Equal(t, 10*time.Second, opts.SlidingTTL)
}
