package prober

import (
	"sort"
	"sync"
)

// Ledger records ids whose probe failed with a transient error.
type Ledger struct {
	mu     sync.Mutex
	failed map[int64]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{failed: make(map[int64]struct{})}
}

// Add records a transient failure for id.
func (l *Ledger) Add(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed[id] = struct{}{}
}

// Take removes and returns the failed ids that belong to chunk, in chunk order.
func (l *Ledger) Take(chunk []int64) []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int64
	for _, id := range chunk {
		if _, ok := l.failed[id]; ok {
			delete(l.failed, id)
			out = append(out, id)
		}
	}
	return out
}

// Unresolved lists every id still in the ledger, ascending.
func (l *Ledger) Unresolved() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int64, 0, len(l.failed))
	for id := range l.failed {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of ids in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failed)
}
