package notify

import (
	"context"
	"errors"

	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// Fanout relays every notification to all of its sinks and joins their errors.
type Fanout []prober.Notifier

// Notify implements prober.Notifier.
func (f Fanout) Notify(ctx context.Context, n prober.Notification) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
