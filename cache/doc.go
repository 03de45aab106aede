// Package cache is a get-or-compute cache layer for read-heavy query
// handlers, with TTL expiry and bulk invalidation by logical prefix on top
// of substrates that have no native "delete by pattern" operation.
//
// # Keys
//
// Callers supply logical keys: colon-delimited segments where filter
// segments carry an "=", e.g. "Employees:page=1:size=10:last=smith". The
// store namespaces them into physical keys with the configured KeyPrefix
// and derives each key's aggregate prefix from its shape alone (see
// [ExtractPrefix]), so writers never thread a separate prefix argument.
//
// # Backends
//
// Two interchangeable backends implement [Store]:
//
//   - [NewMemory] — in-process map guarded by a mutex, background sweeper
//     for expired entries, optional size limit with closest-to-expiry
//     eviction. Values are stored live, with no serialization.
//   - [NewDistributed] — redis via [github.com/redis/go-redis/v9]. Entries
//     are hashes carrying the payload (serialized by the injected [Codec],
//     msgpack by default), the sliding window and the absolute deadline.
//     Prefix indexes and the catalog are native redis sets.
//
// [New] selects the backend once at startup from the configuration
// snapshot; callers only ever see the [Store] interface.
//
// # Prefix invalidation
//
// Every Set registers its physical key in a per-prefix index set and the
// prefix in a catalog set. RemoveByPrefix walks the index and deletes what
// it finds; the empty prefix walks the whole catalog. Index maintenance is
// eventually consistent: concurrent writers may leave a stale or duplicate
// index member, which costs a wasted delete but never serves a stale value,
// because entries expire on their own TTLs regardless of index drift.
//
// # Degradation
//
// An unreachable substrate never surfaces to callers: Get degrades to a
// miss, Set and the invalidation paths to no-ops, each logged at the
// boundary. Malformed payloads also read as misses so a fresh computation
// can replace them. Only the caller's own context cancellation propagates
// as an error.
//
// # Get-or-compute
//
//	loader := cache.NewLoader(store)
//	opts := cache.ResolveEntryOptions(provider.Snapshot(), "Employees")
//	emps, found, err := cache.Load(ctx, loader, key, opts,
//	    func(ctx context.Context) ([]Employee, bool, error) {
//	        return queryEmployees(ctx, filter)
//	    },
//	)
//
// Concurrent misses for the same key share one computation via
// singleflight.
package cache
