package cachehttp

import (
	"net/http"
	"strconv"

	"github.com/harbourkey/querycache/cache"
	"github.com/harbourkey/querycache/config"
	"github.com/harbourkey/querycache/diagnostics"
)

// Diagnostics header names. The status header name is configurable; the
// key and duration headers are fixed.
const (
	HeaderCacheKey      = "X-Cache-Key"
	HeaderCacheDuration = "X-Cache-Duration-Ms"
)

// WriteDiagnostics emits the cache diagnostics headers for one lookup:
// status, the display form of the key, and the remaining TTL on a hit.
// A nil hit means miss. No-op unless the snapshot enables the header.
func WriteDiagnostics(w http.ResponseWriter, cfg config.Settings, logicalKey string, hit *cache.Hit) {
	if !cfg.Diagnostics.EmitCacheStatusHeader {
		return
	}
	status := diagnostics.StatusMiss
	if hit != nil {
		status = diagnostics.StatusHit
	}
	w.Header().Set(cfg.Diagnostics.HeaderName, string(status))
	w.Header().Set(HeaderCacheKey, cache.DisplayKey(cfg, logicalKey))
	if hit != nil {
		w.Header().Set(HeaderCacheDuration, strconv.FormatInt(hit.RemainingTTL.Milliseconds(), 10))
	}
}
