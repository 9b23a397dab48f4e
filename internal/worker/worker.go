// Package worker implements the per-chunk probing loop.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/metrics"
	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// DefaultBackoffFactor multiplies the base delay into the 429 pause.
const DefaultBackoffFactor = 100

// Config controls Worker behavior.
type Config struct {
	// BaseDelay is the operator's inter-request delay. Workers do not sleep
	// between probes; it only scales the rate-limit pause.
	BaseDelay     time.Duration
	BackoffFactor int
}

// Backoff is the pause applied after a 429.
func (c Config) Backoff() time.Duration {
	return c.BaseDelay * time.Duration(c.BackoffFactor)
}

// Worker probes one chunk of ids: a primary pass followed by a single retry
// pass over the ids that failed transiently.
type Worker struct {
	id     int
	chunk  []int64
	target prober.Target
	probe  prober.Prober
	known  *prober.KnownSet
	ledger *prober.Ledger
	gate   *prober.PauseGate
	queue  prober.Queue
	stats  *prober.Stats
	clock  prober.Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(
	id int,
	chunk []int64,
	target prober.Target,
	probe prober.Prober,
	known *prober.KnownSet,
	ledger *prober.Ledger,
	gate *prober.PauseGate,
	queue prober.Queue,
	stats *prober.Stats,
	clock prober.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	metrics.Init()
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = DefaultBackoffFactor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = &prober.Stats{}
	}
	return &Worker{
		id:     id,
		chunk:  chunk,
		target: target,
		probe:  probe,
		known:  known,
		ledger: ledger,
		gate:   gate,
		queue:  queue,
		stats:  stats,
		clock:  clock,
		cfg:    cfg,
		logger: logger.Named("worker").With(zap.Int("worker", id), zap.String("target", target.Name())),
	}
}

// Run probes the chunk and returns once the retry pass is done or ctx ends.
// Cancellation is observed between probes only.
func (w *Worker) Run(ctx context.Context) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if len(w.chunk) > 0 {
		w.logger.Info("scraping chunk",
			zap.Int("ids", len(w.chunk)),
			zap.Int64("first", w.chunk[0]),
			zap.Int64("last", w.chunk[len(w.chunk)-1]),
		)
	}
	for _, id := range w.chunk {
		if ctx.Err() != nil || !w.check(ctx, id) {
			return
		}
	}

	failed := w.ledger.Take(w.chunk)
	if len(failed) == 0 {
		return
	}
	w.logger.Info("retrying failed ids", zap.Int("ids", len(failed)))
	for _, id := range failed {
		if ctx.Err() != nil {
			// Put the rest back so the run summary still reports them.
			w.ledger.Add(id)
			continue
		}
		w.stats.RecordRetry()
		if !w.check(ctx, id) {
			w.ledger.Add(id)
		}
	}
}

// check probes one id and acts on the verdict. It returns false when ctx
// ended before the id could be resolved.
func (w *Worker) check(ctx context.Context, id int64) bool {
	waitStart := w.clock.Now()
	if err := w.gate.Wait(ctx); err != nil {
		return false
	}
	if waited := w.clock.Now().Sub(waitStart); waited > time.Millisecond {
		metrics.ObservePauseWait(w.target.Name(), waited)
	}

	if w.known.Contains(id) {
		w.stats.RecordVerdict(prober.VerdictKnown)
		w.logger.Debug("id already known", zap.Int64("id", id))
		return true
	}

	url := w.target.ResourceURL(id)
	w.logger.Debug("checking id", zap.Int64("id", id), zap.String("url", url))
	resp, err := w.probe.Probe(ctx, prober.ProbeRequest{ID: id, URL: url})
	if err != nil && ctx.Err() != nil {
		return false
	}
	verdict := prober.Classify(resp, err)
	w.stats.RecordVerdict(verdict)
	metrics.ObserveProbe(w.target.Name(), verdict.String(), resp.Duration)
	metrics.ObserveProxy(resp.ProxyURL)

	fields := []zap.Field{zap.Int64("id", id), zap.String("formatted_id", w.target.FormatID(id))}
	switch verdict {
	case prober.VerdictFound:
		if !w.known.AddIfAbsent(id) {
			return true
		}
		w.queue.Push(prober.DiscoveryEvent{
			ID:          id,
			FormattedID: w.target.FormatID(id),
			URL:         url,
			Worker:      w.id,
			FoundAt:     w.clock.Now(),
		})
		w.logger.Info("found a new id", fields...)
	case prober.VerdictNotFound:
	case prober.VerdictBanned:
		w.logger.Warn("ip banned", append(fields, zap.String("proxy", metrics.SanitizeHost(resp.ProxyURL)))...)
	case prober.VerdictRateLimited:
		backoff := w.cfg.Backoff()
		until := w.gate.Trip(backoff)
		metrics.ObservePause(w.target.Name())
		w.logger.Warn("rate limited, pausing target",
			append(fields, zap.Duration("backoff", backoff), zap.Time("until", until))...)
		if err := w.gate.Wait(ctx); err != nil {
			w.logger.Debug("pause interrupted", zap.Error(err))
		}
	case prober.VerdictTransient:
		w.ledger.Add(id)
		w.logger.Warn("probe failed", append(fields, zap.Error(err))...)
	default:
		w.logger.Warn("unexpected status", append(fields, zap.Int("status", resp.StatusCode))...)
	}
	return true
}
