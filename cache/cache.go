package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/harbourkey/querycache/config"
	"github.com/harbourkey/querycache/diagnostics"
)

// Store is the contract both backends implement. All methods honor the
// context for cancellation; none of them surface transient substrate
// failures — a broken cache degrades to misses and no-ops, it never takes
// the application down with it.
type Store interface {
	// Get returns the entry for a logical key, or nil on miss. Misses cover
	// disabled caching, an active bypass context, absent or expired entries,
	// and unreachable substrates.
	Get(ctx context.Context, key string) (*Hit, error)

	// Set writes a value under a logical key with the resolved TTLs, then
	// registers the physical key in its prefix index and the prefix in the
	// catalog. A no-op when caching is disabled, bypassed, or the options
	// forbid writing.
	Set(ctx context.Context, key string, value any, opts EntryOptions) error

	// Remove deletes the entry and untracks it from its prefix index,
	// garbage-collecting the index and catalog entries when they empty out.
	// Removing an absent key is a successful no-op.
	Remove(ctx context.Context, key string) error

	// RemoveByPrefix deletes every key tracked under the prefix. The empty
	// prefix sweeps every cataloged prefix and clears the catalog.
	RemoveByPrefix(ctx context.Context, prefix string) error

	// Codec is the serializer used for byte-backed entries, needed by the
	// generic read helpers.
	Codec() Codec

	// HashIndex exposes the hash-to-key reverse index maintained when
	// diagnostics run in Hash mode.
	HashIndex() *HashIndex

	Close() error
}

// Hit is a successful lookup. Value is the live value for the memory
// backend and the serialized []byte payload for the distributed one; use
// GetValue to read it uniformly.
type Hit struct {
	Value        any
	RemainingTTL time.Duration
}

// DisplayKey returns the diagnostics-safe form of a logical key under the
// given settings: the key itself in Raw mode, its one-way hash in Hash mode.
func DisplayKey(cfg config.Settings, logicalKey string) string {
	if cfg.Diagnostics.KeyDisplayMode == config.KeyDisplayHash {
		return KeyHash(logicalKey)
	}
	return logicalKey
}

// GetValue reads a typed value from the store. A malformed payload decodes
// as a miss rather than an error so a fresh computation can replace it.
func GetValue[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var zero T
	hit, err := s.Get(ctx, key)
	if err != nil || hit == nil {
		return zero, false, err
	}
	if typed, ok := hit.Value.(T); ok {
		return typed, true, nil
	}
	if data, ok := hit.Value.([]byte); ok {
		var out T
		if err := s.Codec().Unmarshal(data, &out); err != nil {
			return zero, false, nil
		}
		return out, true, nil
	}
	return zero, false, nil
}

// Invoker produces a value on a cache miss. Returning found=false signals
// "no value" without caching a zero (the sql.ErrNoRows case).
type Invoker[T any] func(ctx context.Context) (T, bool, error)

// Loader is the get-or-compute front for a Store. Concurrent misses for the
// same key share a single invocation.
type Loader struct {
	store Store
	group singleflight.Group
}

func NewLoader(s Store) *Loader {
	return &Loader{store: s}
}

// Load checks the cache first and otherwise invokes the function, caching
// the result under the resolved options. Invoke errors propagate; cache
// write failures do not (the caller already has their value).
func Load[T any](ctx context.Context, l *Loader, key string, opts EntryOptions, invoke Invoker[T]) (T, bool, error) {
	var zero T
	val, found, err := GetValue[T](ctx, l.store, key)
	if err != nil {
		return zero, false, err
	}
	if found {
		return val, true, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		result, ok, err := invoke(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if opts.Cacheable() {
			_ = l.store.Set(ctx, key, result, opts)
		}
		return result, nil
	})
	if err != nil {
		return zero, false, err
	}
	if v == nil {
		return zero, false, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false, nil
	}
	return typed, true, nil
}

// DefaultQueryTimeout bounds each I/O operation against the distributed
// substrate so a slow store cannot hang request handling.
const DefaultQueryTimeout = 5 * time.Second

// DefaultExpiryCheck is the sweep interval for the memory backend's
// background cleanup of expired entries and index sets.
const DefaultExpiryCheck = time.Minute

type options struct {
	logger       *zap.Logger
	codec        Codec
	publisher    diagnostics.Publisher
	queryTimeout time.Duration
	expiryCheck  time.Duration
	redisClient  *redis.Client
}

// Option configures a Store or Invalidator.
type Option func(*options)

func applyOptions(opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		codec:        MsgpackCodec{},
		publisher:    diagnostics.NopPublisher{},
		queryTimeout: DefaultQueryTimeout,
		expiryCheck:  DefaultExpiryCheck,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCodec replaces the serializer used by byte-backed substrates.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithPublisher wires a diagnostics publisher for hit/miss signals.
func WithPublisher(p diagnostics.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithQueryTimeout overrides the per-operation timeout for the distributed
// substrate.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.queryTimeout = d
		}
	}
}

// WithExpiryCheck overrides the memory backend's sweep interval.
func WithExpiryCheck(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.expiryCheck = d
		}
	}
}

// WithRedisClient injects an existing client instead of dialing the
// configured connection string. The caller keeps ownership of its lifecycle.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) { o.redisClient = client }
}

// New selects the backend from the configuration snapshot taken at startup.
// Provider mismatches fail here, never per request.
func New(ctx context.Context, provider config.Provider, opts ...Option) (Store, error) {
	cfg := provider.Snapshot()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case config.ProviderMemory:
		return NewMemory(ctx, provider, opts...), nil
	case config.ProviderDistributed:
		o := applyOptions(opts)
		client := o.redisClient
		if client == nil {
			ropts, err := redis.ParseURL(cfg.ProviderSettings.Distributed.ConnectionString)
			if err != nil {
				return nil, fmt.Errorf("cache: parsing connection string: %w", err)
			}
			client = redis.NewClient(ropts)
		}
		return NewDistributed(ctx, provider, client, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}
