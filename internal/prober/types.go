package prober

import "time"

// Unbounded is the stop sentinel meaning "no upper bound".
const Unbounded int64 = -1

// DiscoveryEvent is queued by a worker when a previously unknown id resolves.
type DiscoveryEvent struct {
	ID          int64
	FormattedID string
	URL         string
	Worker      int
	FoundAt     time.Time
}

// ProbeRequest captures everything needed to probe a single id.
type ProbeRequest struct {
	ID  int64
	URL string
}

// ProbeResponse is the result returned by a Prober implementation.
type ProbeResponse struct {
	URL        string
	StatusCode int
	ProxyURL   string
	Duration   time.Duration
}

// Record is the row persisted for each discovered id.
type Record struct {
	Target      string    `json:"target"`
	ID          int64     `json:"id"`
	FormattedID string    `json:"formatted_id"`
	URL         string    `json:"url"`
	AddedAt     time.Time `json:"added_at"`
}

// Notification is the payload relayed to the notification sink.
type Notification struct {
	ID          int64  `json:"id"`
	FormattedID string `json:"formatted_id"`
	URL         string `json:"url"`
	Target      string `json:"target"`
}

// RunSummary describes one completed Scrape invocation.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	Target     string        `json:"target"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Requested  int           `json:"workers_requested"`
	Workers    int           `json:"workers_started"`
	ChunkSize  int           `json:"chunk_size"`
	Discovered []int64       `json:"discovered"`
	Unresolved []int64       `json:"unresolved"`
	Stats      StatsSnapshot `json:"stats"`
	// Interrupted is set when the run context ended before every chunk was probed.
	Interrupted bool `json:"interrupted"`
}
