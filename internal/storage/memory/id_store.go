package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// IDStore is an in-memory prober.Store keyed by target.
type IDStore struct {
	mu      sync.RWMutex
	records map[string]map[int64]prober.Record
	closed  bool
}

// NewIDStore constructs an empty store.
func NewIDStore() *IDStore {
	return &IDStore{records: make(map[string]map[int64]prober.Record)}
}

// EnsureTable creates the bucket for target.
func (s *IDStore) EnsureTable(_ context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[target]; !ok {
		s.records[target] = make(map[int64]prober.Record)
	}
	return nil
}

// KnownIDs returns every id stored for target.
func (s *IDStore) KnownIDs(_ context.Context, target string) (map[int64]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]struct{}, len(s.records[target]))
	for id := range s.records[target] {
		out[id] = struct{}{}
	}
	return out, nil
}

// InsertIfAbsent stores record unless its id is already present.
func (s *IDStore) InsertIfAbsent(_ context.Context, record prober.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.records[record.Target]
	if !ok {
		bucket = make(map[int64]prober.Record)
		s.records[record.Target] = bucket
	}
	if _, exists := bucket[record.ID]; exists {
		return false, nil
	}
	bucket[record.ID] = record
	return true, nil
}

// Seed adds ids for target as if they had been stored earlier.
func (s *IDStore) Seed(target string, ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.records[target]
	if !ok {
		bucket = make(map[int64]prober.Record)
		s.records[target] = bucket
	}
	for _, id := range ids {
		bucket[id] = prober.Record{Target: target, ID: id}
	}
}

// Records returns the stored records for target.
func (s *IDStore) Records(target string) []prober.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]prober.Record, 0, len(s.records[target]))
	for _, rec := range s.records[target] {
		out = append(out, rec)
	}
	return out
}

// Close marks the store closed.
func (s *IDStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether Close was called.
func (s *IDStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
