package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/progress"
)

// LogSink writes run milestones to a zap logger. Discoveries are logged at
// debug level since the dispatcher already reports them.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("progress")}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
			zap.String("target", evt.Target),
		}
		switch evt.Stage {
		case progress.StageWorkerStart, progress.StageWorkerDone:
			fields = append(fields, zap.Int("worker", evt.Worker), zap.Int64("ids", evt.Count), zap.Duration("dur", evt.Dur))
			s.logger.Debug("progress event", fields...)
		case progress.StageIDFound:
			fields = append(fields, zap.Int("worker", evt.Worker), zap.Int64("id", evt.ID))
			s.logger.Debug("progress event", fields...)
		case progress.StageRunError:
			s.logger.Warn("progress event", append(fields, zap.String("note", evt.Note), zap.Duration("dur", evt.Dur))...)
		default:
			s.logger.Info("progress event", append(fields, zap.Int64("count", evt.Count), zap.Duration("dur", evt.Dur))...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
