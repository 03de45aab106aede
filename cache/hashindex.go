package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/harbourkey/querycache/config"
)

// HashIndex maps KeyHash(logicalKey) back to the logical key. It exists so
// that, in Hash display mode, diagnostics can emit the hash and the
// invalidation facade can still act on it. Entries live directly on the
// substrate under a reserved namespace, outside the prefix index and
// catalog.
type HashIndex struct {
	sub      substrate
	provider config.Provider
	codec    Codec
	logger   *zap.Logger
}

// Track records hash → logicalKey with a TTL at least as long as the entry
// being written. Substrate failures degrade to a no-op.
func (h *HashIndex) Track(ctx context.Context, logicalKey string, opts EntryOptions) error {
	cfg := h.provider.Snapshot()
	ttl := maxDuration(opts.AbsoluteTTL, cfg.IndexTTL())
	if ttl <= 0 {
		return nil
	}
	err := h.sub.set(ctx, hashKey(cfg.KeyPrefix, KeyHash(logicalKey)), logicalKey, ttl, 0)
	return h.degrade(ctx, "hash track", err)
}

// TryResolve returns the logical key a hash was tracked for, if it is still
// known. Unknown, expired or unreadable mappings report false.
func (h *HashIndex) TryResolve(ctx context.Context, hash string) (string, bool) {
	cfg := h.provider.Snapshot()
	ent, err := h.sub.get(ctx, hashKey(cfg.KeyPrefix, hash))
	if err != nil || ent == nil {
		return "", false
	}
	switch v := ent.value.(type) {
	case string:
		return v, true
	case []byte:
		var key string
		if err := h.codec.Unmarshal(v, &key); err == nil {
			return key, true
		}
	}
	return "", false
}

// Remove drops a mapping. Removing an unknown hash is a successful no-op.
func (h *HashIndex) Remove(ctx context.Context, hash string) error {
	cfg := h.provider.Snapshot()
	return h.degrade(ctx, "hash remove", h.sub.remove(ctx, hashKey(cfg.KeyPrefix, hash)))
}

func (h *HashIndex) degrade(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	h.logger.Warn("hash index degraded", zap.String("op", op), zap.Error(err))
	return nil
}
