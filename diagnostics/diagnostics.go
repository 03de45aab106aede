// Package diagnostics carries hit/miss signals from the cache layer to
// observability sinks. Publishers receive the display form of the key —
// raw or hashed, depending on configuration — and must never block the
// request path on slow sinks.
package diagnostics

import (
	"context"
	"time"
)

// Status is the outcome of a cache lookup as exposed to diagnostics.
type Status string

const (
	StatusHit  Status = "HIT"
	StatusMiss Status = "MISS"
)

// Invalidation scopes reported by the invalidation facade.
const (
	ScopeKey    = "key"
	ScopePrefix = "prefix"
	ScopeAll    = "all"
)

// Event describes a single cache lookup.
type Event struct {
	// Key is the display form of the logical key (raw or hashed).
	Key    string
	Status Status
	// RemainingTTL is the time left before the entry expires. Zero on miss.
	RemainingTTL time.Duration
}

// Publisher consumes lookup and invalidation signals.
type Publisher interface {
	Lookup(ctx context.Context, ev Event)
	Invalidation(ctx context.Context, scope string)
}

// NopPublisher discards all signals.
type NopPublisher struct{}

func (NopPublisher) Lookup(context.Context, Event)        {}
func (NopPublisher) Invalidation(context.Context, string) {}

type multiPublisher struct {
	publishers []Publisher
}

// Multi fans signals out to several publishers in order.
func Multi(publishers ...Publisher) Publisher {
	return multiPublisher{publishers: publishers}
}

func (m multiPublisher) Lookup(ctx context.Context, ev Event) {
	for _, p := range m.publishers {
		p.Lookup(ctx, ev)
	}
}

func (m multiPublisher) Invalidation(ctx context.Context, scope string) {
	for _, p := range m.publishers {
		p.Invalidation(ctx, scope)
	}
}
