// Package memory contains an in-memory notifier for tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// Notifier stores notifications for inspection. Err, when set, is returned
// from every Notify call after the notification is recorded.
type Notifier struct {
	mu            sync.RWMutex
	notifications []prober.Notification
	Err           error
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Notify records the notification.
func (n *Notifier) Notify(_ context.Context, note prober.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, note)
	return n.Err
}

// Notifications returns the recorded notifications.
func (n *Notifier) Notifications() []prober.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]prober.Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}
