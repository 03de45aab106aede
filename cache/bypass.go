package cache

import "context"

type bypassContextKey struct{}

// WithBypass marks the context so every cache operation under it behaves as
// if caching were disabled: Get misses, Set is a no-op. The flag is scoped
// to the request's context and is never persisted or shared.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassContextKey{}, true)
}

// IsBypassed reports whether the context carries the bypass flag.
func IsBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassContextKey{}).(bool)
	return v
}
