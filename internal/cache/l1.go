// Package cache provides the in-process tier of the statements engine: a TTL
// cache with distinct hit/miss lifetimes, and a single-flight coalescer.
package cache

import (
	"sync"
	"time"

	"github.com/aristath/statements/internal/domain"
)

// EntryKind distinguishes positive entries from cached confirmed absences.
type EntryKind int

const (
	// EntryHit holds a series.
	EntryHit EntryKind = iota
	// EntryMiss records that upstream definitively has no data for the key.
	EntryMiss
)

// Entry is one L1 slot. For EntryMiss, Series is nil.
type Entry struct {
	Series    *domain.StatementSeries
	Kind      EntryKind
	StoredAt  time.Time
	ExpiresAt time.Time
}

// L1 is a concurrency-safe in-memory TTL cache keyed by (ticker, statement type).
// Positive and negative entries expire on independent TTLs: a confirmed "no
// data upstream" answer is worth caching, but for less time than real data.
// Expired entries are dropped lazily on read. A zero TTL disables that entry
// kind entirely.
type L1 struct {
	mu      sync.RWMutex
	entries map[domain.Key]Entry
	hitTTL  time.Duration
	missTTL time.Duration
	now     func() time.Time
}

// NewL1 creates an L1 cache with the given positive and negative TTLs.
func NewL1(hitTTL, missTTL time.Duration) *L1 {
	return &L1{
		entries: make(map[domain.Key]Entry),
		hitTTL:  hitTTL,
		missTTL: missTTL,
		now:     time.Now,
	}
}

// Get returns the unexpired entry for key, if any. Expired entries are evicted.
func (l *L1) Get(key domain.Key) (Entry, bool) {
	l.mu.RLock()
	entry, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if !l.now().Before(entry.ExpiresAt) {
		l.Evict(key)
		return Entry{}, false
	}
	return entry, true
}

// SetHit stores a positive entry. The series pointer is shared with callers;
// series handed to the cache must not be mutated afterwards.
func (l *L1) SetHit(key domain.Key, series *domain.StatementSeries) {
	now := l.now()
	l.set(key, Entry{
		Series:    series,
		Kind:      EntryHit,
		StoredAt:  now,
		ExpiresAt: now.Add(l.hitTTL),
	})
}

// SetMiss stores a negative entry recording confirmed upstream absence.
func (l *L1) SetMiss(key domain.Key) {
	now := l.now()
	l.set(key, Entry{
		Kind:      EntryMiss,
		StoredAt:  now,
		ExpiresAt: now.Add(l.missTTL),
	})
}

func (l *L1) set(key domain.Key, entry Entry) {
	l.mu.Lock()
	l.entries[key] = entry
	l.mu.Unlock()
}

// Evict removes the entry for key, if present.
func (l *L1) Evict(key domain.Key) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Purge drops every entry.
func (l *L1) Purge() {
	l.mu.Lock()
	l.entries = make(map[domain.Key]Entry)
	l.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (l *L1) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
