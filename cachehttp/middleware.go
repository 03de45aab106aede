package cachehttp

import (
	"net/http"

	"github.com/harbourkey/querycache/cache"
)

// BypassMiddleware arms the cache bypass context for requests carrying the
// configured debug header with the expected token. An empty token disables
// the feature entirely — requests can never bypass by accident.
func BypassMiddleware(headerName, token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" && headerName != "" && r.Header.Get(headerName) == token {
			r = r.WithContext(cache.WithBypass(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}
