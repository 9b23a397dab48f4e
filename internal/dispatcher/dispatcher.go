// Package dispatcher drains discovery events from the queue and hands them to
// the notification sink and the store. It is the only writer to the store.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/catalog-prober/internal/metrics"
	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// DefaultDrainInterval is how often the queue is drained while workers run.
const DefaultDrainInterval = 10 * time.Second

// Drain triggers, used as metric labels.
const (
	TriggerInterval = "interval"
	TriggerStartup  = "startup"
	TriggerFinal    = "final"
)

// Config controls drain cadence and send pacing.
type Config struct {
	DrainInterval time.Duration
	// SendDelay spaces consecutive deliveries. Zero or less disables pacing.
	SendDelay time.Duration
}

// Dispatcher consumes the discovery queue.
type Dispatcher struct {
	queue    prober.Queue
	store    prober.Store
	notifier prober.Notifier
	target   prober.Target
	stats    *prober.Stats
	clock    prober.Clock
	limiter  *rate.Limiter
	cfg      Config
	logger   *zap.Logger

	mu        sync.Mutex
	delivered []int64
}

// New creates a Dispatcher.
func New(
	queue prober.Queue,
	store prober.Store,
	notifier prober.Notifier,
	target prober.Target,
	stats *prober.Stats,
	clock prober.Clock,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	metrics.Init()
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = DefaultDrainInterval
	}
	limit := rate.Inf
	if cfg.SendDelay > 0 {
		limit = rate.Every(cfg.SendDelay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = &prober.Stats{}
	}
	return &Dispatcher{
		queue:    queue,
		store:    store,
		notifier: notifier,
		target:   target,
		stats:    stats,
		clock:    clock,
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		logger:   logger.Named("dispatcher").With(zap.String("target", target.Name())),
	}
}

// Run drains on every interval tick until done is closed, then performs one
// final drain. Deliveries use a context detached from ctx cancellation so
// discoveries made before an interrupt are still stored.
func (d *Dispatcher) Run(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(d.cfg.DrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			d.Drain(ctx, TriggerFinal)
			return
		case <-ticker.C:
			d.Drain(ctx, TriggerInterval)
		}
	}
}

// Drain delivers every queued event and returns how many were handled.
// Concurrent calls are serialized.
func (d *Dispatcher) Drain(ctx context.Context, trigger string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	events := d.queue.Drain()
	metrics.ObserveDrain(trigger)
	if len(events) == 0 {
		return 0
	}
	d.logger.Info("adding new ids to the store", zap.Int("events", len(events)), zap.String("trigger", trigger))

	sendCtx := context.WithoutCancel(ctx)
	for _, ev := range events {
		if err := d.limiter.Wait(sendCtx); err != nil {
			d.logger.Warn("send pacing failed", zap.Error(err))
		}
		d.deliver(sendCtx, ev)
	}
	return len(events)
}

func (d *Dispatcher) deliver(ctx context.Context, ev prober.DiscoveryEvent) {
	name := d.target.Name()
	fields := []zap.Field{zap.Int64("id", ev.ID), zap.String("formatted_id", ev.FormattedID)}

	err := d.notifier.Notify(ctx, prober.Notification{
		ID:          ev.ID,
		FormattedID: ev.FormattedID,
		URL:         ev.URL,
		Target:      name,
	})
	metrics.ObserveNotification(name, err)
	if err != nil {
		d.stats.RecordNotifyFailure()
		d.logger.Error("failed to send notification", append(fields, zap.Error(err))...)
	}

	inserted, err := d.store.InsertIfAbsent(ctx, prober.Record{
		Target:      name,
		ID:          ev.ID,
		FormattedID: ev.FormattedID,
		URL:         ev.URL,
		AddedAt:     d.clock.Now(),
	})
	switch {
	case err != nil:
		d.stats.RecordStoreFailure()
		metrics.ObserveDiscovery(name, "store_failed")
		d.logger.Error("failed to store id", append(fields, zap.Error(err))...)
		return
	case !inserted:
		d.stats.RecordPersisted(false)
		metrics.ObserveDiscovery(name, "duplicate")
		d.logger.Debug("id already stored", fields...)
	default:
		d.stats.RecordPersisted(true)
		metrics.ObserveDiscovery(name, "persisted")
		d.logger.Info("added id to the store", fields...)
	}
	d.delivered = append(d.delivered, ev.ID)
}

// TakeDelivered returns the ids handled since the previous call, in
// delivery order, and resets the list.
func (d *Dispatcher) TakeDelivered() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.delivered
	d.delivered = nil
	return out
}
