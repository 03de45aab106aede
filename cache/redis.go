package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harbourkey/querycache/config"
)

// NewDistributed returns the remote backend. The caller owns the client
// lifecycle — Close is a no-op on the client.
func NewDistributed(_ context.Context, provider config.Provider, client *redis.Client, opts ...Option) Store {
	o := applyOptions(opts)
	sub := &redisSubstrate{
		client:       client,
		codec:        o.codec,
		queryTimeout: o.queryTimeout,
	}
	return newStore(sub, provider, o)
}

// redisSubstrate stores each entry as a hash: field "v" holds the payload,
// "s" the sliding window in milliseconds, "d" the absolute deadline as unix
// milliseconds. Index and catalog sets are native redis sets.
type redisSubstrate struct {
	client       *redis.Client
	codec        Codec
	queryTimeout time.Duration
}

var _ substrate = (*redisSubstrate)(nil)

func (r *redisSubstrate) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, r.queryTimeout)
}

func (r *redisSubstrate) get(ctx context.Context, key string) (*entry, error) {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()
	pipe := r.client.Pipeline()
	fields := pipe.HGetAll(qctx, key)
	pttl := pipe.PTTL(qctx, key)
	if _, err := pipe.Exec(qctx); err != nil {
		return nil, err
	}
	vals := fields.Val()
	payload, ok := vals["v"]
	if !ok {
		return nil, nil
	}

	now := time.Now()
	deadline := time.UnixMilli(parseInt(vals["d"]))
	remaining := pttl.Val()
	if remaining <= 0 {
		remaining = deadline.Sub(now)
	}

	// Sliding window: push the key's TTL out on every hit, capped at the
	// absolute deadline. Fire-and-forget — a failed extension only shortens
	// the entry's life.
	if sliding := time.Duration(parseInt(vals["s"])) * time.Millisecond; sliding > 0 {
		ext := sliding
		if until := deadline.Sub(now); until < ext {
			ext = until
		}
		if ext > 0 {
			r.client.PExpire(qctx, key, ext)
		}
	}
	return &entry{value: []byte(payload), remaining: remaining}, nil
}

func (r *redisSubstrate) set(ctx context.Context, key string, value any, absolute, sliding time.Duration) error {
	data, err := r.codec.Marshal(value)
	if err != nil {
		return err
	}
	initial := absolute
	if sliding > 0 && sliding < absolute {
		initial = sliding
	}
	deadline := time.Now().Add(absolute).UnixMilli()
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()
	pipe := r.client.Pipeline()
	pipe.HSet(qctx, key, "v", data, "s", sliding.Milliseconds(), "d", deadline)
	pipe.PExpire(qctx, key, initial)
	_, err = pipe.Exec(qctx)
	return err
}

func (r *redisSubstrate) remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()
	return r.client.Del(qctx, keys...).Err()
}

func (r *redisSubstrate) addMember(ctx context.Context, setKey, member string, ttl time.Duration) error {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()
	pipe := r.client.Pipeline()
	pipe.SAdd(qctx, setKey, member)
	pttl := pipe.PTTL(qctx, setKey)
	if _, err := pipe.Exec(qctx); err != nil {
		return err
	}
	// Only ever extend: a short-lived entry must not shorten the life of an
	// index that still tracks longer-lived keys.
	if pttl.Val() < ttl {
		return r.client.PExpire(qctx, setKey, ttl).Err()
	}
	return nil
}

func (r *redisSubstrate) removeMember(ctx context.Context, setKey, member string) (int, error) {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()
	pipe := r.client.Pipeline()
	pipe.SRem(qctx, setKey, member)
	card := pipe.SCard(qctx, setKey)
	if _, err := pipe.Exec(qctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func (r *redisSubstrate) members(ctx context.Context, setKey string) ([]string, error) {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()
	return r.client.SMembers(qctx, setKey).Result()
}

func (r *redisSubstrate) removeSet(ctx context.Context, setKey string) error {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()
	return r.client.Del(qctx, setKey).Err()
}

// close is a no-op — the caller owns the redis client lifecycle.
func (r *redisSubstrate) close() error {
	return nil
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
