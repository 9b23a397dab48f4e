// Package memory provides the in-process discovery queue between workers and
// the dispatcher.
package memory

import (
	"sync"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// Queue is an unbounded multi-producer queue of discovery events. Push never
// blocks a worker; the dispatcher takes everything at once with Drain.
type Queue struct {
	mu     sync.Mutex
	events []prober.DiscoveryEvent
	pushed int
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event.
func (q *Queue) Push(event prober.DiscoveryEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	q.pushed++
}

// Drain removes and returns every queued event in push order.
func (q *Queue) Drain() []prober.DiscoveryEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of events waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Pushed returns the total number of events ever pushed.
func (q *Queue) Pushed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}
