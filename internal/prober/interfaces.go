package prober

import (
	"context"
	"time"
)

// Target formats ids and builds resource URLs for one catalog site.
type Target interface {
	Name() string
	Host() string
	MaxDigits() int
	ParseID(raw string) (int64, error)
	FormatID(id int64) string
	ResourceURL(id int64) string
	ResourcePath(id int64) string
}

// TargetRegistry resolves a site name to its Target.
type TargetRegistry interface {
	Lookup(name string) (Target, error)
}

// Store persists discovered ids per target.
type Store interface {
	EnsureTable(ctx context.Context, target string) error
	KnownIDs(ctx context.Context, target string) (map[int64]struct{}, error)
	// InsertIfAbsent returns false without an error when the id is already stored.
	InsertIfAbsent(ctx context.Context, record Record) (bool, error)
	Close()
}

// Notifier relays a discovery to an outbound sink. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Prober issues a lightweight existence check for one resource URL.
type Prober interface {
	Probe(ctx context.Context, request ProbeRequest) (ProbeResponse, error)
}

// Queue carries discovery events from workers to the dispatcher.
type Queue interface {
	Push(event DiscoveryEvent)
	Drain() []DiscoveryEvent
	Len() int
}

// ReportWriter stores a run summary and returns its location.
type ReportWriter interface {
	WriteReport(ctx context.Context, summary RunSummary) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run ids.
type IDGenerator interface {
	NewID() (string, error)
}
