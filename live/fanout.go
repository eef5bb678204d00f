package live

import (
	"context"
	"errors"

	"github.com/Dosada05/scorekeeper/models"
)

// Notifier matches services.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event models.SessionEvent) error
}

// Fanout delivers each event to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event models.SessionEvent) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
