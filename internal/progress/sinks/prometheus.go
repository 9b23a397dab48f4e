package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/catalog-prober/internal/progress"
)

// PrometheusSink exports run-level metrics: runs started, completed and in
// flight, run wall time, and workers finished per target.
type PrometheusSink struct {
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runsRunning   prometheus.Gauge
	runDuration   *prometheus.HistogramVec
	workersDone   *prometheus.CounterVec
	idsDelivered  *prometheus.CounterVec

	mu      sync.Mutex
	running map[string]struct{}
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prober_runs_started_total",
			Help: "Scrape runs started per target.",
		}, []string{"target"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prober_runs_completed_total",
			Help: "Scrape runs completed per target and result.",
		}, []string{"target", "result"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prober_runs_running",
			Help: "Scrape runs currently in flight.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prober_run_duration_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 21600},
		}, []string{"target", "result"}),
		workersDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prober_workers_finished_total",
			Help: "Workers that finished their chunk.",
		}, []string{"target"}),
		idsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prober_run_ids_delivered_total",
			Help: "Ids delivered to the store and notifier, summed per completed run.",
		}, []string{"target"}),
		running: make(map[string]struct{}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsRunning,
		s.runDuration,
		s.workersDone,
		s.idsDelivered,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.WithLabelValues(evt.Target).Inc()
			if s.track(evt.RunID, true) {
				s.runsRunning.Inc()
			}
		case progress.StageRunDone, progress.StageRunError:
			result := "success"
			if evt.Stage == progress.StageRunError {
				result = "error"
			}
			s.runsCompleted.WithLabelValues(evt.Target, result).Inc()
			if evt.Dur > 0 {
				s.runDuration.WithLabelValues(evt.Target, result).Observe(evt.Dur.Seconds())
			}
			if evt.Count > 0 {
				s.idsDelivered.WithLabelValues(evt.Target).Add(float64(evt.Count))
			}
			if s.track(evt.RunID, false) {
				s.runsRunning.Dec()
			}
		case progress.StageWorkerDone:
			s.workersDone.WithLabelValues(evt.Target).Inc()
		}
	}
	return nil
}

// track records a run as started or finished and reports whether the state
// changed.
func (s *PrometheusSink) track(runID string, start bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[runID]
	if start {
		if ok {
			return false
		}
		s.running[runID] = struct{}{}
		return true
	}
	if !ok {
		return false
	}
	delete(s.running, runID)
	return true
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
