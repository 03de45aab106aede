package cache

import (
	"context"

	"github.com/harbourkey/querycache/config"
	"github.com/harbourkey/querycache/diagnostics"
)

// Invalidator is the single entry point callers use to invalidate cached
// state. Every operation is idempotent: invalidating something already
// absent is a successful no-op, never an error.
type Invalidator struct {
	store     Store
	provider  config.Provider
	publisher diagnostics.Publisher
}

func NewInvalidator(store Store, provider config.Provider, opts ...Option) *Invalidator {
	o := applyOptions(opts)
	return &Invalidator{
		store:     store,
		provider:  provider,
		publisher: o.publisher,
	}
}

// InvalidateKey removes a single entry. In Hash display mode the argument
// may be a hash previously emitted by diagnostics; if the hash index still
// knows it, the resolved logical key is invalidated and the mapping
// dropped. Otherwise the argument is treated as a raw logical key.
func (i *Invalidator) InvalidateKey(ctx context.Context, keyOrHash string) error {
	cfg := i.provider.Snapshot()
	key := keyOrHash
	if cfg.Diagnostics.KeyDisplayMode == config.KeyDisplayHash {
		if resolved, ok := i.store.HashIndex().TryResolve(ctx, keyOrHash); ok {
			key = resolved
			if err := i.store.HashIndex().Remove(ctx, keyOrHash); err != nil {
				return err
			}
		}
	}
	if err := i.store.Remove(ctx, key); err != nil {
		return err
	}
	i.publisher.Invalidation(ctx, diagnostics.ScopeKey)
	return nil
}

// InvalidatePrefix removes every entry tracked under a prefix.
func (i *Invalidator) InvalidatePrefix(ctx context.Context, prefix string) error {
	if err := i.store.RemoveByPrefix(ctx, prefix); err != nil {
		return err
	}
	scope := diagnostics.ScopePrefix
	if prefix == "" {
		scope = diagnostics.ScopeAll
	}
	i.publisher.Invalidation(ctx, scope)
	return nil
}

// InvalidateAll removes every tracked prefix and clears the catalog.
func (i *Invalidator) InvalidateAll(ctx context.Context) error {
	return i.InvalidatePrefix(ctx, "")
}
