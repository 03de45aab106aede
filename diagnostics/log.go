package diagnostics

import (
	"context"

	"go.uber.org/zap"
)

type logPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher emits lookup and invalidation signals as structured debug
// logs. The key field already carries the configured display form, so raw
// filter values only appear when the deployment opted into Raw mode.
func NewLogPublisher(logger *zap.Logger) Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Lookup(_ context.Context, ev Event) {
	p.logger.Debug("cache lookup",
		zap.String("key", ev.Key),
		zap.String("status", string(ev.Status)),
		zap.Duration("remaining_ttl", ev.RemainingTTL),
	)
}

func (p *logPublisher) Invalidation(_ context.Context, scope string) {
	p.logger.Info("cache invalidation", zap.String("scope", scope))
}
