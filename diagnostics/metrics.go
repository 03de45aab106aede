package diagnostics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsPublisher counts cache lookups and invalidations.
type MetricsPublisher struct {
	lookups       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetricsPublisher registers the cache counters with reg and returns a
// publisher feeding them. Pass prometheus.DefaultRegisterer for the usual
// process-wide registry.
func NewMetricsPublisher(reg prometheus.Registerer) (*MetricsPublisher, error) {
	p := &MetricsPublisher{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querycache_lookups_total",
			Help: "Cache lookups by outcome.",
		}, []string{"status"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querycache_invalidations_total",
			Help: "Cache invalidations by scope.",
		}, []string{"scope"}),
	}
	for _, c := range []prometheus.Collector{p.lookups, p.invalidations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *MetricsPublisher) Lookup(_ context.Context, ev Event) {
	p.lookups.WithLabelValues(string(ev.Status)).Inc()
}

func (p *MetricsPublisher) Invalidation(_ context.Context, scope string) {
	p.invalidations.WithLabelValues(scope).Inc()
}
