// In-memory Store implementation.
//
// A single RWMutex-guarded map with per-entry deadlines. Expired entries are
// dropped lazily on read and swept opportunistically once enough writes have
// accumulated, so memory stays bounded without a background goroutine.
// Suitable for a single-process deployment; the Store interface leaves room
// for a shared cache behind the same contract.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/notehaven/go-notes-backend/internal/domain"
)

// sweepEvery is the number of writes between opportunistic full sweeps.
const sweepEvery = 4096

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool { return now.After(e.expiresAt) }

// Memory is an in-process Store. The zero value is not usable; construct with
// NewMemory. Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]entry
	writes uint64
	nowFn  func() time.Time // overridable in tests
}

// NewMemory returns an empty in-memory cache store.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]entry),
		nowFn: time.Now,
	}
}

// get returns the live value for key, dropping it when expired.
func (m *Memory) get(key string) (any, bool) {
	now := m.nowFn()

	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent put may have refreshed it.
		if cur, ok := m.items[key]; ok && cur.expired(now) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// put stores value under key for ttl. Non-positive TTLs are rejected silently:
// an entry that expires immediately is indistinguishable from a miss.
func (m *Memory) put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := m.nowFn()

	m.mu.Lock()
	m.items[key] = entry{value: value, expiresAt: now.Add(ttl)}
	m.writes++
	if m.writes >= sweepEvery {
		for k, e := range m.items {
			if e.expired(now) {
				delete(m.items, k)
			}
		}
		m.writes = 0
	}
	m.mu.Unlock()
}

// GetNote implements Store. The cached note is copied out so callers can
// mutate the result without corrupting the cache.
func (m *Memory) GetNote(_ context.Context, owner, id string) (*domain.Note, bool, error) {
	v, ok := m.get(noteKey(owner, id))
	observeLookup("note", ok)
	if !ok {
		return nil, false, nil
	}
	n := v.(domain.Note)
	return &n, true, nil
}

// PutNote implements Store.
func (m *Memory) PutNote(_ context.Context, owner string, note *domain.Note, ttl time.Duration) error {
	if note == nil {
		return nil
	}
	m.put(noteKey(owner, note.ID), *note, ttl)
	return nil
}

// GetList implements Store. The cached page is copied on the way out.
func (m *Memory) GetList(_ context.Context, owner, cursor string) ([]domain.Note, bool, error) {
	v, ok := m.get(listKey(owner, cursor))
	observeLookup("list", ok)
	if !ok {
		return nil, false, nil
	}
	cached := v.([]domain.Note)
	out := make([]domain.Note, len(cached))
	copy(out, cached)
	return out, true, nil
}

// PutList implements Store. The page is copied on the way in so later caller
// mutations cannot leak into the cache.
func (m *Memory) PutList(_ context.Context, owner, cursor string, notes []domain.Note, ttl time.Duration) error {
	cp := make([]domain.Note, len(notes))
	copy(cp, notes)
	m.put(listKey(owner, cursor), cp, ttl)
	return nil
}

// GetCount implements Store.
func (m *Memory) GetCount(_ context.Context, owner string, includeDeleted bool) (int64, bool, error) {
	v, ok := m.get(countKey(owner, includeDeleted))
	observeLookup("count", ok)
	if !ok {
		return 0, false, nil
	}
	return v.(int64), true, nil
}

// PutCount implements Store.
func (m *Memory) PutCount(_ context.Context, owner string, includeDeleted bool, n int64, ttl time.Duration) error {
	m.put(countKey(owner, includeDeleted), n, ttl)
	return nil
}

// InvalidateOwner implements Store by dropping every key under the owner's
// note, listing, and count prefixes.
func (m *Memory) InvalidateOwner(_ context.Context, owner string) error {
	prefixes := ownerPrefixes(owner)
	cacheInvalidations.Inc()

	m.mu.Lock()
	for k := range m.items {
		for _, p := range prefixes {
			if strings.HasPrefix(k, p) {
				delete(m.items, k)
				break
			}
		}
	}
	m.mu.Unlock()
	return nil
}

// GetAIResult implements Store.
func (m *Memory) GetAIResult(_ context.Context, fingerprint string) ([]byte, bool, error) {
	v, ok := m.get(aiKey(fingerprint))
	observeLookup("ai", ok)
	if !ok {
		return nil, false, nil
	}
	cached := v.([]byte)
	out := make([]byte, len(cached))
	copy(out, cached)
	return out, true, nil
}

// PutAIResult implements Store.
func (m *Memory) PutAIResult(_ context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.put(aiKey(fingerprint), cp, ttl)
	return nil
}

var _ Store = (*Memory)(nil)
