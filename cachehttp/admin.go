// Package cachehttp is the HTTP face of the cache layer: the admin
// invalidation endpoint, the debug bypass middleware and the diagnostics
// response headers. Routing and auth stay with the host application.
package cachehttp

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harbourkey/querycache/cache"
)

// InvalidateRequest is the admin invalidation body. Exactly one path is
// taken, in priority order: InvalidateAll, then Key, then Prefix.
type InvalidateRequest struct {
	Key           string `json:"key,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	InvalidateAll bool   `json:"invalidateAll,omitempty"`
}

// AdminHandler serves POST invalidation requests against the facade.
type AdminHandler struct {
	invalidator *cache.Invalidator
	logger      *zap.Logger
}

func NewAdminHandler(invalidator *cache.Invalidator, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{invalidator: invalidator, logger: logger}
}

var _ http.Handler = (*AdminHandler)(nil)

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	log := h.logger.With(zap.String("request_id", requestID))
	ctx := r.Context()
	var err error
	switch {
	case req.InvalidateAll:
		log.Info("invalidating all cached entries")
		err = h.invalidator.InvalidateAll(ctx)
	case req.Key != "":
		log.Info("invalidating cache key")
		err = h.invalidator.InvalidateKey(ctx, req.Key)
	case req.Prefix != "":
		log.Info("invalidating cache prefix", zap.String("prefix", req.Prefix))
		err = h.invalidator.InvalidatePrefix(ctx, req.Prefix)
	default:
		// None of the three paths requested: caller error, not a cache error.
		http.Error(w, "one of key, prefix or invalidateAll is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("invalidation failed", zap.Error(err))
		http.Error(w, "invalidation failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
