// Package scraper wires the probing engine together: it resolves the target,
// seeds the known id set from the store, partitions the id stream into chunks,
// runs one worker per chunk and keeps the dispatcher draining until they exit.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/catalog-prober/internal/clock/system"
	"github.com/JakeFAU/catalog-prober/internal/dispatcher"
	"github.com/JakeFAU/catalog-prober/internal/id/uuid"
	"github.com/JakeFAU/catalog-prober/internal/progress"
	"github.com/JakeFAU/catalog-prober/internal/prober"
	"github.com/JakeFAU/catalog-prober/internal/queue/memory"
	"github.com/JakeFAU/catalog-prober/internal/worker"
)

const (
	// startupDrainThreshold is the worker count above which the queue is
	// drained while workers are still being started.
	startupDrainThreshold = 20
	startupDrainEvery     = 5
)

// Config carries the per-process scrape parameters.
type Config struct {
	Target string
	// Start and Stop are parsed by the target, so formatted ids are accepted.
	// An empty Stop means unbounded.
	Start         string
	Stop          string
	BaseDelay     time.Duration
	DrainInterval time.Duration
	BackoffFactor int
}

// Deps are the collaborators the scraper drives.
type Deps struct {
	Registry prober.TargetRegistry
	Store    prober.Store
	Notifier prober.Notifier
	Prober   prober.Prober
	IDs      prober.IDGenerator
	Clock    prober.Clock
	// Reports and Progress are optional.
	Reports  prober.ReportWriter
	Progress progress.Emitter
}

// Progress is a point-in-time view of the scraper for the status API.
type Progress struct {
	RunID      string               `json:"run_id,omitempty"`
	Target     string               `json:"target"`
	Running    bool                 `json:"running"`
	Start      int64                `json:"start"`
	Stop       int64                `json:"stop"`
	Known      int                  `json:"known_ids"`
	Pending    int                  `json:"pending_events"`
	Unresolved int                  `json:"unresolved"`
	PauseTrips int                  `json:"pause_trips"`
	PausedFor  string               `json:"paused_for,omitempty"`
	Stats      prober.StatsSnapshot `json:"stats"`
}

// Scraper owns the state that outlives a single Scrape call: the id stream,
// the known id set and the failure ledger.
type Scraper struct {
	target prober.Target
	start  int64
	stop   int64
	deps   Deps
	cfg    Config
	logger *zap.Logger

	stream *prober.Stream
	known  *prober.KnownSet
	ledger *prober.Ledger
	gate   *prober.PauseGate
	queue  *memory.Queue

	mu      sync.Mutex
	running atomic.Bool
	runID   atomic.Pointer[string]
	stats   atomic.Pointer[prober.Stats]
	last    atomic.Pointer[prober.RunSummary]
}

// New resolves the target, validates the id range and loads the ids already
// stored for the target. Unknown targets, malformed ids and missing
// collaborators are the only fatal conditions.
func New(ctx context.Context, deps Deps, cfg Config, logger *zap.Logger) (*Scraper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("%w: target registry", prober.ErrConfigurationMissing)
	}
	target, err := deps.Registry.Lookup(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}
	start, stop, err := parseRange(target, cfg.Start, cfg.Stop)
	if err != nil {
		return nil, err
	}
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", prober.ErrConfigurationMissing)
	case deps.Notifier == nil:
		return nil, fmt.Errorf("%w: notifier", prober.ErrConfigurationMissing)
	case deps.Prober == nil:
		return nil, fmt.Errorf("%w: prober", prober.ErrConfigurationMissing)
	}
	if deps.IDs == nil {
		deps.IDs = uuid.New()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Progress == nil {
		deps.Progress = progress.Discard
	}

	if err := deps.Store.EnsureTable(ctx, target.Name()); err != nil {
		return nil, fmt.Errorf("ensure table: %w", err)
	}
	seed, err := deps.Store.KnownIDs(ctx, target.Name())
	if err != nil {
		return nil, fmt.Errorf("load known ids: %w", err)
	}

	logger = logger.Named("scraper").With(zap.String("target", target.Name()))
	logger.Info("scraper ready",
		zap.Int64("start", start),
		zap.Int64("stop", stop),
		zap.Int("known_ids", len(seed)),
		zap.Duration("delay", cfg.BaseDelay),
	)

	s := &Scraper{
		target: target,
		start:  start,
		stop:   stop,
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		stream: prober.NewStream(start, stop, target.MaxDigits()),
		known:  prober.NewKnownSet(seed),
		ledger: prober.NewLedger(),
		gate:   prober.NewPauseGate(),
		queue:  memory.NewQueue(),
	}
	s.stats.Store(&prober.Stats{})
	return s, nil
}

func parseRange(target prober.Target, rawStart, rawStop string) (int64, int64, error) {
	start, err := target.ParseID(rawStart)
	if err != nil {
		return 0, 0, fmt.Errorf("parse start: %w", err)
	}
	if start < 1 {
		return 0, 0, fmt.Errorf("%w: start must be >= 1, got %d", prober.ErrInvalidIdentifier, start)
	}
	stop := prober.Unbounded
	if strings.TrimSpace(rawStop) != "" {
		stop, err = target.ParseID(rawStop)
		if err != nil {
			return 0, 0, fmt.Errorf("parse stop: %w", err)
		}
	}
	if stop < prober.Unbounded {
		return 0, 0, fmt.Errorf("%w: stop must be >= -1, got %d", prober.ErrInvalidIdentifier, stop)
	}
	return start, stop, nil
}

// Target returns the resolved target.
func (s *Scraper) Target() prober.Target {
	return s.target
}

// Scrape partitions the next ids of the stream across up to workers workers
// and blocks until they finish and every discovery has been delivered.
// A bounded stop derives the chunk size from the range; otherwise perWorker
// sets it, with zero meaning the default. Cancelling ctx stops workers
// between probes; discoveries already made are still stored.
func (s *Scraper) Scrape(ctx context.Context, workers, perWorker int) (prober.RunSummary, error) {
	if workers <= 0 {
		return prober.RunSummary{}, errors.New("workers must be > 0")
	}
	if perWorker < 0 {
		return prober.RunSummary{}, errors.New("per-worker count must be >= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	runID, err := s.deps.IDs.NewID()
	if err != nil {
		return prober.RunSummary{}, fmt.Errorf("generate run id: %w", err)
	}
	stats := &prober.Stats{}
	s.stats.Store(stats)
	s.runID.Store(&runID)
	s.running.Store(true)
	defer s.running.Store(false)

	logger := s.logger.With(zap.String("run_id", runID))
	startedAt := s.deps.Clock.Now()
	size := prober.ChunkSize(s.start, s.stop, workers, perWorker)
	chunks := prober.Partition(s.stream, workers, size)
	if len(chunks) < workers {
		logger.Warn("fewer workers than requested",
			zap.Int("requested", workers),
			zap.Int("started", len(chunks)),
			zap.Int("chunk_size", size),
		)
	}
	s.emit(progress.Event{RunID: runID, Stage: progress.StageRunStart, Count: int64(len(chunks))})
	logger.Info("starting workers", zap.Int("workers", len(chunks)), zap.Int("chunk_size", size))

	disp := dispatcher.New(s.queue, s.deps.Store, s.deps.Notifier, s.target, stats, s.deps.Clock,
		dispatcher.Config{DrainInterval: s.cfg.DrainInterval, SendDelay: s.cfg.BaseDelay}, logger)
	workersDone := make(chan struct{})
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		disp.Run(ctx, workersDone)
	}()

	queue := observedQueue{Queue: s.queue, onPush: func(ev prober.DiscoveryEvent) {
		s.emit(progress.Event{RunID: runID, Stage: progress.StageIDFound, Worker: ev.Worker, ID: ev.ID})
	}}
	wcfg := worker.Config{BaseDelay: s.cfg.BaseDelay, BackoffFactor: s.cfg.BackoffFactor}

	var g errgroup.Group
	started := 0
	for i, chunk := range chunks {
		if i > 0 && !s.stagger(ctx) {
			break
		}
		w := worker.New(i, chunk, s.target, s.deps.Prober, s.known, s.ledger, s.gate, queue, stats, s.deps.Clock, wcfg, logger)
		idx, n := i, int64(len(chunk))
		g.Go(func() error {
			began := s.deps.Clock.Now()
			s.emit(progress.Event{RunID: runID, Stage: progress.StageWorkerStart, Worker: idx, Count: n})
			w.Run(ctx)
			s.emit(progress.Event{RunID: runID, Stage: progress.StageWorkerDone, Worker: idx, Count: n,
				Dur: s.deps.Clock.Now().Sub(began)})
			return nil
		})
		started++
		if len(chunks) > startupDrainThreshold && i > 0 && i%startupDrainEvery == 0 {
			disp.Drain(ctx, dispatcher.TriggerStartup)
		}
	}
	_ = g.Wait()
	close(workersDone)
	<-dispatched

	summary := prober.RunSummary{
		RunID:       runID,
		Target:      s.target.Name(),
		StartedAt:   startedAt,
		FinishedAt:  s.deps.Clock.Now(),
		Requested:   workers,
		Workers:     started,
		ChunkSize:   size,
		Discovered:  nonNil(disp.TakeDelivered()),
		Unresolved:  nonNil(s.ledger.Unresolved()),
		Stats:       stats.Snapshot(),
		Interrupted: ctx.Err() != nil,
	}
	if len(summary.Unresolved) > 0 {
		logger.Debug("ids that failed both attempts", zap.Int64s("ids", summary.Unresolved))
	}
	s.writeReport(ctx, logger, summary)

	done := progress.Event{RunID: runID, Stage: progress.StageRunDone, Count: int64(len(summary.Discovered)),
		Dur: summary.FinishedAt.Sub(startedAt)}
	if summary.Interrupted {
		done.Stage = progress.StageRunError
		done.Note = context.Cause(ctx).Error()
	}
	s.emit(done)
	s.last.Store(&summary)

	logger.Info("scrape finished",
		zap.Int("workers", started),
		zap.Int("discovered", len(summary.Discovered)),
		zap.Int("unresolved", len(summary.Unresolved)),
		zap.Int64("checked", summary.Stats.Checked),
		zap.Bool("interrupted", summary.Interrupted),
		zap.Duration("took", done.Dur),
	)
	return summary, nil
}

// stagger waits one base delay between worker starts. It reports false when
// ctx ended first.
func (s *Scraper) stagger(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.cfg.BaseDelay <= 0 {
		return true
	}
	timer := time.NewTimer(s.cfg.BaseDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scraper) writeReport(ctx context.Context, logger *zap.Logger, summary prober.RunSummary) {
	if s.deps.Reports == nil {
		return
	}
	uri, err := s.deps.Reports.WriteReport(context.WithoutCancel(ctx), summary)
	if err != nil {
		logger.Error("failed to write run report", zap.Error(err))
		return
	}
	logger.Info("run report written", zap.String("uri", uri))
}

func (s *Scraper) emit(evt progress.Event) {
	evt.TS = s.deps.Clock.Now()
	evt.Target = s.target.Name()
	s.deps.Progress.Emit(evt)
}

// Progress reports the live state of the current or most recent run.
func (s *Scraper) Progress() Progress {
	p := Progress{
		Target:     s.target.Name(),
		Running:    s.running.Load(),
		Start:      s.start,
		Stop:       s.stop,
		Known:      s.known.Len(),
		Pending:    s.queue.Len(),
		Unresolved: s.ledger.Len(),
		PauseTrips: s.gate.Trips(),
		Stats:      s.stats.Load().Snapshot(),
	}
	if id := s.runID.Load(); id != nil {
		p.RunID = *id
	}
	if remaining := s.gate.Remaining(); remaining > 0 {
		p.PausedFor = remaining.Round(time.Millisecond).String()
	}
	return p
}

// LastRun returns the summary of the most recent completed Scrape call.
func (s *Scraper) LastRun() (prober.RunSummary, bool) {
	last := s.last.Load()
	if last == nil {
		return prober.RunSummary{}, false
	}
	return *last, true
}

// observedQueue reports every push before handing the event on.
type observedQueue struct {
	prober.Queue
	onPush func(prober.DiscoveryEvent)
}

func (q observedQueue) Push(ev prober.DiscoveryEvent) {
	q.Queue.Push(ev)
	q.onPush(ev)
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
