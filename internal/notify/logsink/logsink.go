// Package logsink reports discoveries to the process log. It is the sink for
// dry runs where no webhook or topic is configured.
package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// Notifier logs every discovery at info level.
type Notifier struct {
	logger *zap.Logger
}

// New returns a log-backed notifier.
func New(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger.Named("discoveries")}
}

// Notify implements prober.Notifier.
func (n *Notifier) Notify(_ context.Context, note prober.Notification) error {
	n.logger.Info("new id",
		zap.String("target", note.Target),
		zap.Int64("id", note.ID),
		zap.String("formatted_id", note.FormattedID),
		zap.String("url", note.URL),
	)
	return nil
}
