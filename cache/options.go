package cache

import (
	"time"

	"github.com/harbourkey/querycache/config"
)

// EntryOptions are the resolved TTLs for one cache write. A zero
// AbsoluteTTL means "do not write".
type EntryOptions struct {
	AbsoluteTTL time.Duration
	// SlidingTTL, when positive, lets a hit extend the entry by this window,
	// capped at the absolute deadline fixed when the entry was written.
	SlidingTTL time.Duration
}

// Cacheable reports whether these options permit a write at all.
func (o EntryOptions) Cacheable() bool {
	return o.AbsoluteTTL > 0
}

// ResolveEntryOptions computes the TTLs for a write on behalf of the named
// endpoint. Disabled caching resolves to the degenerate "do not write"
// options. Endpoint lookup is case-insensitive and falls back to the
// empty-string entry, then to the global default duration.
func ResolveEntryOptions(s config.Settings, endpointName string) EntryOptions {
	if !s.Active() {
		return EntryOptions{}
	}
	opts := EntryOptions{AbsoluteTTL: s.DefaultTTL()}
	e, ok := s.EndpointTTL(endpointName)
	if !ok {
		return opts
	}
	if e.AbsoluteTTLSeconds > 0 {
		opts.AbsoluteTTL = time.Duration(e.AbsoluteTTLSeconds) * time.Second
	}
	if e.SlidingTTLSeconds > 0 {
		opts.SlidingTTL = time.Duration(e.SlidingTTLSeconds) * time.Second
	}
	return opts
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
