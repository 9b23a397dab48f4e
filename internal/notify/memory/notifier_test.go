package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

func TestNotifierStoresNotifications(t *testing.T) {
	t.Parallel()

	n := New()
	if err := n.Notify(context.Background(), prober.Notification{ID: 1}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	n.Err = errors.New("sink down")
	if err := n.Notify(context.Background(), prober.Notification{ID: 2}); err == nil {
		t.Fatal("expected configured error")
	}

	got := n.Notifications()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	got[0].ID = 99
	if n.Notifications()[0].ID == 99 {
		t.Fatal("expected Notifications() to return a copy")
	}
}
