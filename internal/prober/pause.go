package prober

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PauseGate is a rate-limit pause shared by every worker of a target. A 429
// seen by any worker pushes the resume deadline out, and all workers wait on
// the gate before their next probe.
type PauseGate struct {
	mu    sync.Mutex
	until time.Time
	trips int
	now   func() time.Time
}

// NewPauseGate returns an open gate.
func NewPauseGate() *PauseGate {
	return &PauseGate{now: time.Now}
}

// Trip closes the gate for at least d from now. An already later deadline is
// kept. It returns the deadline in effect.
func (g *PauseGate) Trip(d time.Duration) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trips++
	if deadline := g.now().Add(d); deadline.After(g.until) {
		g.until = deadline
	}
	return g.until
}

// Wait blocks until the gate is open or ctx is done. The deadline is re-read
// after every sleep since another worker may have extended it.
func (g *PauseGate) Wait(ctx context.Context) error {
	for {
		remaining := g.Remaining()
		if remaining <= 0 {
			return nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("pause wait canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// Remaining returns how long the gate stays closed.
func (g *PauseGate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.until.Sub(g.now())
}

// Trips returns how many times the gate has been tripped.
func (g *PauseGate) Trips() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trips
}
