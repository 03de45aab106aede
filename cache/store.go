package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harbourkey/querycache/config"
	"github.com/harbourkey/querycache/diagnostics"
)

// substrate is the physical key/value surface a backend provides: TTL-bound
// value entries plus TTL-bound string sets for the prefix index and catalog.
// The substrate knows nothing about prefixes, namespacing or configuration —
// all of that lives in store.
type substrate interface {
	// get returns nil on miss. remaining is the time left before expiry.
	get(ctx context.Context, physicalKey string) (*entry, error)
	set(ctx context.Context, physicalKey string, value any, absolute, sliding time.Duration) error
	remove(ctx context.Context, physicalKeys ...string) error

	// addMember adds to a set, creating it if absent, and lifts the set's
	// TTL to at least ttl.
	addMember(ctx context.Context, setKey, member string, ttl time.Duration) error
	// removeMember removes one member and reports how many remain. An
	// absent set or member counts as already removed.
	removeMember(ctx context.Context, setKey, member string) (int, error)
	members(ctx context.Context, setKey string) ([]string, error)
	removeSet(ctx context.Context, setKey string) error

	close() error
}

type entry struct {
	value     any
	remaining time.Duration
}

// store implements the Store contract over a substrate. One implementation
// serves both backends; only the substrate differs.
type store struct {
	sub      substrate
	provider config.Provider
	opts     options
	hashes   *HashIndex
}

var _ Store = (*store)(nil)

func newStore(sub substrate, provider config.Provider, o options) *store {
	return &store{
		sub:      sub,
		provider: provider,
		opts:     o,
		hashes: &HashIndex{
			sub:      sub,
			provider: provider,
			codec:    o.codec,
			logger:   o.logger,
		},
	}
}

// degrade swallows a substrate failure (logging it) unless the caller's own
// context is done, in which case cancellation propagates. A cache outage
// must never become an application outage.
func (s *store) degrade(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.opts.logger.Warn("cache operation degraded", zap.String("op", op), zap.Error(err))
	return nil
}

func (s *store) publish(ctx context.Context, cfg config.Settings, logicalKey string, status diagnostics.Status, remaining time.Duration) {
	s.opts.publisher.Lookup(ctx, diagnostics.Event{
		Key:          DisplayKey(cfg, logicalKey),
		Status:       status,
		RemainingTTL: remaining,
	})
}

func (s *store) Get(ctx context.Context, key string) (*Hit, error) {
	cfg := s.provider.Snapshot()
	if !cfg.Active() || IsBypassed(ctx) {
		s.publish(ctx, cfg, key, diagnostics.StatusMiss, 0)
		return nil, nil
	}
	ent, err := s.sub.get(ctx, BuildCacheKey(cfg.KeyPrefix, key))
	if err != nil {
		if derr := s.degrade(ctx, "get", err); derr != nil {
			return nil, derr
		}
		ent = nil
	}
	if ent == nil {
		s.publish(ctx, cfg, key, diagnostics.StatusMiss, 0)
		return nil, nil
	}
	s.publish(ctx, cfg, key, diagnostics.StatusHit, ent.remaining)
	return &Hit{Value: ent.value, RemainingTTL: ent.remaining}, nil
}

func (s *store) Set(ctx context.Context, key string, value any, opts EntryOptions) error {
	cfg := s.provider.Snapshot()
	if !cfg.Active() || IsBypassed(ctx) || !opts.Cacheable() {
		return nil
	}
	physical := BuildCacheKey(cfg.KeyPrefix, key)
	if err := s.degrade(ctx, "set", s.sub.set(ctx, physical, value, opts.AbsoluteTTL, opts.SlidingTTL)); err != nil {
		return err
	}

	// Track the new key under its prefix so RemoveByPrefix can find it.
	// Index and catalog keys outlive the entries they track.
	prefix := ExtractPrefix(key)
	ttl := maxDuration(opts.AbsoluteTTL, cfg.IndexTTL())
	if err := s.degrade(ctx, "index", s.sub.addMember(ctx, indexKey(cfg.KeyPrefix, prefix), physical, ttl)); err != nil {
		return err
	}
	if err := s.degrade(ctx, "catalog", s.sub.addMember(ctx, catalogKey(cfg.KeyPrefix), prefix, ttl)); err != nil {
		return err
	}

	if cfg.Diagnostics.KeyDisplayMode == config.KeyDisplayHash {
		if err := s.hashes.Track(ctx, key, opts); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) Remove(ctx context.Context, key string) error {
	cfg := s.provider.Snapshot()
	physical := BuildCacheKey(cfg.KeyPrefix, key)
	if err := s.degrade(ctx, "remove", s.sub.remove(ctx, physical)); err != nil {
		return err
	}

	prefix := ExtractPrefix(key)
	idx := indexKey(cfg.KeyPrefix, prefix)
	remaining, err := s.sub.removeMember(ctx, idx, physical)
	if derr := s.degrade(ctx, "index untrack", err); derr != nil || err != nil {
		return derr
	}
	if remaining == 0 {
		// Last tracked key under the prefix: drop the empty index and the
		// catalog entry so dead prefixes do not accumulate.
		if err := s.degrade(ctx, "index gc", s.sub.removeSet(ctx, idx)); err != nil {
			return err
		}
		_, err := s.sub.removeMember(ctx, catalogKey(cfg.KeyPrefix), prefix)
		if derr := s.degrade(ctx, "catalog gc", err); derr != nil {
			return derr
		}
	}
	return nil
}

func (s *store) RemoveByPrefix(ctx context.Context, prefix string) error {
	cfg := s.provider.Snapshot()
	catalog := catalogKey(cfg.KeyPrefix)

	if prefix == "" {
		// Full sweep: remove every cataloged prefix, then the catalog itself.
		prefixes, err := s.sub.members(ctx, catalog)
		if derr := s.degrade(ctx, "catalog scan", err); derr != nil || err != nil {
			return derr
		}
		for _, p := range prefixes {
			if err := s.removeTrackedPrefix(ctx, cfg, p); err != nil {
				return err
			}
		}
		return s.degrade(ctx, "catalog clear", s.sub.removeSet(ctx, catalog))
	}

	if err := s.removeTrackedPrefix(ctx, cfg, prefix); err != nil {
		return err
	}
	_, err := s.sub.removeMember(ctx, catalog, prefix)
	return s.degrade(ctx, "catalog untrack", err)
}

// removeTrackedPrefix deletes every key listed in one prefix index, then
// the index itself. Stale index members (already-expired entries) are
// harmless — the deletes are no-ops.
func (s *store) removeTrackedPrefix(ctx context.Context, cfg config.Settings, prefix string) error {
	idx := indexKey(cfg.KeyPrefix, prefix)
	keys, err := s.sub.members(ctx, idx)
	if derr := s.degrade(ctx, "index scan", err); derr != nil || err != nil {
		return derr
	}
	if len(keys) > 0 {
		if err := s.degrade(ctx, "prefix sweep", s.sub.remove(ctx, keys...)); err != nil {
			return err
		}
	}
	return s.degrade(ctx, "index drop", s.sub.removeSet(ctx, idx))
}

func (s *store) Codec() Codec {
	return s.opts.codec
}

func (s *store) HashIndex() *HashIndex {
	return s.hashes
}

func (s *store) Close() error {
	return s.sub.close()
}
