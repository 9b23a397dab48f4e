package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageWorkerStart Stage = "WORKER_START"
	StageWorkerDone  Stage = "WORKER_DONE"
	StageIDFound     Stage = "ID_FOUND"
	StageRunDone     Stage = "RUN_DONE"
	StageRunError    Stage = "RUN_ERROR"
)

// Event captures a single milestone of a probing run.
type Event struct {
	// RunID identifies the Scrape call that emitted the event.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	Stage  Stage
	Target string
	// Worker is the worker index for worker and discovery stages.
	Worker int
	// ID is the discovered id for StageIDFound.
	ID int64
	// Count carries the number of ids a worker was assigned (WORKER_START) or
	// the number of ids delivered (RUN_DONE).
	Count int64
	// Dur is the run or worker wall time on completion stages.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
		if e.Target == "" {
			return fmt.Errorf("%s requires target", e.Stage)
		}
	case StageWorkerStart, StageWorkerDone:
		if e.Worker < 0 {
			return errors.New("worker index must be >= 0")
		}
	case StageIDFound:
		if e.ID <= 0 {
			return errors.New("id found requires a positive id")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
