package prober

import "sync/atomic"

// Stats counts probe outcomes and dispatcher results. Safe for concurrent use.
type Stats struct {
	checked      atomic.Int64
	known        atomic.Int64
	found        atomic.Int64
	notFound     atomic.Int64
	transient    atomic.Int64
	rateLimited  atomic.Int64
	banned       atomic.Int64
	unexpected   atomic.Int64
	retried      atomic.Int64
	persisted    atomic.Int64
	duplicates   atomic.Int64
	storeFailed  atomic.Int64
	notifyFailed atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Checked      int64 `json:"checked"`
	Known        int64 `json:"known"`
	Found        int64 `json:"found"`
	NotFound     int64 `json:"not_found"`
	Transient    int64 `json:"transient"`
	RateLimited  int64 `json:"rate_limited"`
	Banned       int64 `json:"banned"`
	Unexpected   int64 `json:"unexpected_status"`
	Retried      int64 `json:"retried"`
	Persisted    int64 `json:"persisted"`
	Duplicates   int64 `json:"duplicates"`
	StoreFailed  int64 `json:"store_failed"`
	NotifyFailed int64 `json:"notify_failed"`
}

// RecordVerdict counts one verdict. Only network probes count as checked.
func (s *Stats) RecordVerdict(v Verdict) {
	if v != VerdictKnown {
		s.checked.Add(1)
	}
	switch v {
	case VerdictKnown:
		s.known.Add(1)
	case VerdictFound:
		s.found.Add(1)
	case VerdictNotFound:
		s.notFound.Add(1)
	case VerdictTransient:
		s.transient.Add(1)
	case VerdictRateLimited:
		s.rateLimited.Add(1)
	case VerdictBanned:
		s.banned.Add(1)
	case VerdictUnexpected:
		s.unexpected.Add(1)
	}
}

// RecordRetry counts a second attempt for a transiently failed id.
func (s *Stats) RecordRetry() { s.retried.Add(1) }

// RecordPersisted counts the outcome of one insert-if-absent call.
func (s *Stats) RecordPersisted(inserted bool) {
	if inserted {
		s.persisted.Add(1)
		return
	}
	s.duplicates.Add(1)
}

// RecordStoreFailure counts a failed insert.
func (s *Stats) RecordStoreFailure() { s.storeFailed.Add(1) }

// RecordNotifyFailure counts a failed notification.
func (s *Stats) RecordNotifyFailure() { s.notifyFailed.Add(1) }

// Snapshot copies the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Checked:      s.checked.Load(),
		Known:        s.known.Load(),
		Found:        s.found.Load(),
		NotFound:     s.notFound.Load(),
		Transient:    s.transient.Load(),
		RateLimited:  s.rateLimited.Load(),
		Banned:       s.banned.Load(),
		Unexpected:   s.unexpected.Load(),
		Retried:      s.retried.Load(),
		Persisted:    s.persisted.Load(),
		Duplicates:   s.duplicates.Load(),
		StoreFailed:  s.storeFailed.Load(),
		NotifyFailed: s.notifyFailed.Load(),
	}
}
