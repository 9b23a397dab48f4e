package prober

import "sync"

// KnownSet is the dedup gate: ids already stored or discovered during this
// process. Ids are only ever added.
type KnownSet struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewKnownSet seeds the set with ids loaded from the store.
func NewKnownSet(seed map[int64]struct{}) *KnownSet {
	ids := make(map[int64]struct{}, len(seed))
	for id := range seed {
		ids[id] = struct{}{}
	}
	return &KnownSet{ids: ids}
}

// Contains reports whether id is already known.
func (k *KnownSet) Contains(id int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.ids[id]
	return ok
}

// AddIfAbsent stores id and returns true if it was not known before.
func (k *KnownSet) AddIfAbsent(id int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.ids[id]; ok {
		return false
	}
	k.ids[id] = struct{}{}
	return true
}

// Len returns the number of known ids.
func (k *KnownSet) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.ids)
}
