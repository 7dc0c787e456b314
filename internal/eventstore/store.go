// Package eventstore implements the append-only audit log described by the
// system's data-plane design: a master log plus two secondary indices (by
// correlation id, by order id), serialised behind a single mutex. It is the
// leaf of the three-lock ordering (Execution -> Risk -> Event Store) — it
// never calls into another component.
package eventstore

import (
	"sync"

	"github.com/itirp/gateway/internal/domain"
)

// Store is an in-memory, append-only event log. API-compatible with a
// durable backend: every method returns plain Go errors so a future
// disk/DB-backed implementation can surface AppendFailed without changing
// callers.
type Store struct {
	mu  sync.Mutex
	log []domain.Event

	byCorrelation map[string][]int
	byOrder       map[string][]int
}

// New creates an empty event store.
func New() *Store {
	return &Store{
		byCorrelation: make(map[string][]int),
		byOrder:       make(map[string][]int),
	}
}

// Append inserts event into the master log and both indices atomically.
// After Append returns, the event is visible to every subsequent read.
func (s *Store) Append(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.log)
	s.log = append(s.log, event)
	s.byCorrelation[event.CorrelationID] = append(s.byCorrelation[event.CorrelationID], idx)
	s.byOrder[event.OrderID] = append(s.byOrder[event.OrderID], idx)
	return nil
}

// GetByCorrelation returns every event for cid, in append order.
func (s *Store) GetByCorrelation(cid string) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.byCorrelation[cid])
}

// GetByOrder returns every event for oid, in append order.
func (s *Store) GetByOrder(oid string) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.byOrder[oid])
}

// Replay returns the serialisable projection of GetByCorrelation.
func (s *Store) Replay(cid string) []domain.ReplayEvent {
	events := s.GetByCorrelation(cid)
	out := make([]domain.ReplayEvent, len(events))
	for i, e := range events {
		out[i] = e.ToReplay()
	}
	return out
}

// GetRecent returns the most recent limit events, in append order.
func (s *Store) GetRecent(limit int) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.log) {
		limit = len(s.log)
	}
	start := len(s.log) - limit
	out := make([]domain.Event, limit)
	copy(out, s.log[start:])
	return out
}

// Total returns the number of events appended so far.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

func (s *Store) collect(indices []int) []domain.Event {
	out := make([]domain.Event, len(indices))
	for i, idx := range indices {
		out[i] = s.log[idx]
	}
	return out
}
