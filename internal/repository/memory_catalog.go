package repository

import (
	"sync"
	"time"
)

// FallbackStore is the in-process safety net used when the durable backend
// fails: one per entity kind, tenantID -> newest-first list of records.
// Not persisted; a process restart is the accepted durability boundary.
//
// The HTTP server handles requests on many goroutines, so all operations are
// guarded by one RWMutex (contention is low: the store is only touched on
// durable-store failure or when it already holds rows).
type FallbackStore[T any, PT interface {
	*T
	Entity
}] struct {
	mu   sync.RWMutex
	rows map[string][]T // tenantID -> records, newest first
}

func NewFallbackStore[T any, PT interface {
	*T
	Entity
}]() *FallbackStore[T, PT] {
	return &FallbackStore[T, PT]{rows: map[string][]T{}}
}

// List returns a copy of the tenant's records in insertion order (newest
// first). An unknown tenant yields an empty, non-nil slice.
func (s *FallbackStore[T, PT]) List(tenantID string) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.rows[tenantID]))
	copy(out, s.rows[tenantID])
	return out
}

func (s *FallbackStore[T, PT]) Find(tenantID, id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rows[tenantID]
	for i := range rows {
		if PT(&rows[i]).EntityID() == id {
			return rows[i], true
		}
	}
	var zero T
	return zero, false
}

// Insert prepends, mirroring the durable store's created-at-descending order.
func (s *FallbackStore[T, PT]) Insert(tenantID string, rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[tenantID] = append([]T{rec}, s.rows[tenantID]...)
}

// Patch merges fields into the record with the given id and refreshes its
// UpdatedAt. Reports whether the id was found.
func (s *FallbackStore[T, PT]) Patch(tenantID, id string, fields Fields, now time.Time) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[tenantID]
	for i := range rows {
		if PT(&rows[i]).EntityID() == id {
			PT(&rows[i]).Apply(fields, now)
			return rows[i], true
		}
	}
	var zero T
	return zero, false
}

// Remove filters the id out of the tenant's list and reports whether anything
// was removed. Removing an absent id is not an error.
func (s *FallbackStore[T, PT]) Remove(tenantID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[tenantID]
	kept := rows[:0:0]
	for i := range rows {
		if PT(&rows[i]).EntityID() != id {
			kept = append(kept, rows[i])
		}
	}
	removed := len(kept) != len(rows)
	s.rows[tenantID] = kept
	return removed
}

// Len reports how many records the store holds for a tenant. List-preference
// in the repository keys off this without copying.
func (s *FallbackStore[T, PT]) Len(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[tenantID])
}
