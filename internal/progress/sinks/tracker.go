package sinks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/catalog-prober/internal/progress"
)

// Run statuses reported by the tracker.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

const defaultTrackerHistory = 50

// RunStatus is the tracker's view of one run.
type RunStatus struct {
	RunID          string     `json:"run_id"`
	Target         string     `json:"target"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	WorkersStarted int        `json:"workers_started"`
	WorkersDone    int        `json:"workers_done"`
	IDsAssigned    int64      `json:"ids_assigned"`
	Found          []int64    `json:"found"`
	Delivered      int64      `json:"delivered"`
	Error          string     `json:"error,omitempty"`
}

// Tracker keeps the most recent runs in memory for the status API.
type Tracker struct {
	mu      sync.RWMutex
	runs    map[string]*RunStatus
	history int
}

// NewTracker keeps up to history runs; zero or less uses a default of 50.
func NewTracker(history int) *Tracker {
	if history <= 0 {
		history = defaultTrackerHistory
	}
	return &Tracker{runs: make(map[string]*RunStatus), history: history}
}

// Consume folds the batch into the tracked runs.
func (t *Tracker) Consume(_ context.Context, batch []progress.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, evt := range batch {
		run := t.runs[evt.RunID]
		if run == nil {
			run = &RunStatus{RunID: evt.RunID, Target: evt.Target, Status: RunRunning, StartedAt: evt.TS, Found: []int64{}}
			t.runs[evt.RunID] = run
		}
		switch evt.Stage {
		case progress.StageRunStart:
			run.StartedAt = evt.TS
		case progress.StageWorkerStart:
			run.WorkersStarted++
			run.IDsAssigned += evt.Count
		case progress.StageWorkerDone:
			run.WorkersDone++
		case progress.StageIDFound:
			run.Found = append(run.Found, evt.ID)
		case progress.StageRunDone, progress.StageRunError:
			finished := evt.TS
			run.FinishedAt = &finished
			run.Delivered = evt.Count
			run.Status = RunSuccess
			if evt.Stage == progress.StageRunError {
				run.Status = RunError
				run.Error = evt.Note
			}
		}
	}
	t.evict()
	return nil
}

// evict drops the oldest finished runs beyond the history limit. Callers hold mu.
func (t *Tracker) evict() {
	if len(t.runs) <= t.history {
		return
	}
	finished := make([]*RunStatus, 0, len(t.runs))
	for _, run := range t.runs {
		if run.Status != RunRunning {
			finished = append(finished, run)
		}
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].StartedAt.Before(finished[j].StartedAt) })
	for _, run := range finished {
		if len(t.runs) <= t.history {
			return
		}
		delete(t.runs, run.RunID)
	}
}

// Runs returns copies of the tracked runs, newest first.
func (t *Tracker) Runs() []RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RunStatus, 0, len(t.runs))
	for _, run := range t.runs {
		out = append(out, copyRun(run))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Run returns a copy of one run.
func (t *Tracker) Run(runID string) (RunStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.runs[runID]
	if !ok {
		return RunStatus{}, false
	}
	return copyRun(run), true
}

// Close implements the Sink interface; it performs no action.
func (t *Tracker) Close(context.Context) error {
	return nil
}

func copyRun(run *RunStatus) RunStatus {
	cp := *run
	cp.Found = append([]int64{}, run.Found...)
	if run.FinishedAt != nil {
		finished := *run.FinishedAt
		cp.FinishedAt = &finished
	}
	return cp
}
