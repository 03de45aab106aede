package cache

import (
	"context"
	"sync"
	"time"

	"github.com/harbourkey/querycache/config"
)

// NewMemory returns the in-process backend. The parent context bounds the
// background sweeper goroutine; Close stops it.
func NewMemory(parent context.Context, provider config.Provider, opts ...Option) Store {
	o := applyOptions(opts)
	cfg := provider.Snapshot()
	sub := newMemorySubstrate(parent, cfg.ProviderSettings.Memory.SizeLimitMB, o.expiryCheck)
	return newStore(sub, provider, o)
}

type memEntry struct {
	value any
	// expiresAt is the current expiry; a hit with a sliding window pushes it
	// forward, never past deadline.
	expiresAt time.Time
	deadline  time.Time
	sliding   time.Duration
	size      int
}

type memSet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

type memorySubstrate struct {
	ctx       context.Context
	cancel    context.CancelFunc
	mutex     sync.Mutex
	entries   map[string]*memEntry
	sets      map[string]*memSet
	sizeLimit int // bytes, 0 = unbounded
	size      int
	waitGroup sync.WaitGroup
	once      sync.Once
}

var _ substrate = (*memorySubstrate)(nil)

func newMemorySubstrate(parent context.Context, sizeLimitMB int, expiryCheck time.Duration) *memorySubstrate {
	ctx, cancel := context.WithCancel(parent)
	m := &memorySubstrate{
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[string]*memEntry),
		sets:      make(map[string]*memSet),
		sizeLimit: sizeLimitMB * 1024 * 1024,
	}
	m.waitGroup.Add(1)
	go m.run(expiryCheck)
	return m
}

func (m *memorySubstrate) get(ctx context.Context, key string) (*entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	now := time.Now()
	if e.expiresAt.Before(now) {
		m.dropEntry(key, e)
		return nil, nil
	}
	if e.sliding > 0 {
		next := now.Add(e.sliding)
		if next.After(e.deadline) {
			next = e.deadline
		}
		e.expiresAt = next
	}
	return &entry{value: e.value, remaining: e.expiresAt.Sub(now)}, nil
}

func (m *memorySubstrate) set(ctx context.Context, key string, value any, absolute, sliding time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now()
	deadline := now.Add(absolute)
	expiresAt := deadline
	if sliding > 0 && sliding < absolute {
		expiresAt = now.Add(sliding)
	}
	e := &memEntry{
		value:     value,
		expiresAt: expiresAt,
		deadline:  deadline,
		sliding:   sliding,
		size:      approxSize(value),
	}
	m.mutex.Lock()
	if prev, ok := m.entries[key]; ok {
		m.size -= prev.size
	}
	m.entries[key] = e
	m.size += e.size
	m.evictLocked()
	m.mutex.Unlock()
	return nil
}

func (m *memorySubstrate) remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	for _, key := range keys {
		if e, ok := m.entries[key]; ok {
			m.dropEntry(key, e)
		}
	}
	m.mutex.Unlock()
	return nil
}

func (m *memorySubstrate) addMember(ctx context.Context, setKey, member string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expiresAt := time.Now().Add(ttl)
	m.mutex.Lock()
	s, ok := m.sets[setKey]
	if !ok || s.expiresAt.Before(time.Now()) {
		s = &memSet{members: make(map[string]struct{})}
		m.sets[setKey] = s
	}
	s.members[member] = struct{}{}
	if expiresAt.After(s.expiresAt) {
		s.expiresAt = expiresAt
	}
	m.mutex.Unlock()
	return nil
}

func (m *memorySubstrate) removeMember(ctx context.Context, setKey, member string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sets[setKey]
	if !ok {
		return 0, nil
	}
	delete(s.members, member)
	return len(s.members), nil
}

func (m *memorySubstrate) members(ctx context.Context, setKey string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s, ok := m.sets[setKey]
	if !ok || s.expiresAt.Before(time.Now()) {
		return nil, nil
	}
	out := make([]string, 0, len(s.members))
	for member := range s.members {
		out = append(out, member)
	}
	return out, nil
}

func (m *memorySubstrate) removeSet(ctx context.Context, setKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	delete(m.sets, setKey)
	m.mutex.Unlock()
	return nil
}

func (m *memorySubstrate) close() error {
	m.once.Do(func() {
		m.cancel()
		m.waitGroup.Wait()
	})
	return nil
}

// dropEntry removes an entry and its size accounting. Caller holds the lock.
func (m *memorySubstrate) dropEntry(key string, e *memEntry) {
	m.size -= e.size
	delete(m.entries, key)
}

// evictLocked enforces the size limit by evicting the entries closest to
// expiry. Caller holds the lock.
func (m *memorySubstrate) evictLocked() {
	if m.sizeLimit <= 0 {
		return
	}
	for m.size > m.sizeLimit && len(m.entries) > 0 {
		var victim string
		var victimEntry *memEntry
		for key, e := range m.entries {
			if victimEntry == nil || e.expiresAt.Before(victimEntry.expiresAt) {
				victim = key
				victimEntry = e
			}
		}
		m.dropEntry(victim, victimEntry)
	}
}

// approxSize estimates the memory held by a value for size-limit
// accounting. Only byte- and string-shaped values are measured; everything
// else gets a flat estimate, which is as precise as an in-process cache of
// arbitrary values can honestly be.
func approxSize(v any) int {
	const overhead = 64
	switch val := v.(type) {
	case []byte:
		return len(val) + overhead
	case string:
		return len(val) + overhead
	default:
		return 512
	}
}

func (m *memorySubstrate) run(interval time.Duration) {
	defer m.waitGroup.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			m.mutex.Lock()
			for key, e := range m.entries {
				if e.expiresAt.Before(now) {
					m.dropEntry(key, e)
				}
			}
			for key, s := range m.sets {
				if s.expiresAt.Before(now) {
					delete(m.sets, key)
				}
			}
			m.mutex.Unlock()
		}
	}
}
