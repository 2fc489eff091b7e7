package events

import (
	"context"
	"errors"

	"solar-registry/internal/models"
)

// MultiNotifier fans one event out to several notifiers. Every notifier is
// invoked even when an earlier one fails; failures are joined into a single
// returned error.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a fan-out notifier
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (n *MultiNotifier) RegistryInitialized(ctx context.Context, event models.OracleInitializedEvent) error {
	var errs []error
	for _, notifier := range n.notifiers {
		if err := notifier.RegistryInitialized(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *MultiNotifier) DataUpdated(ctx context.Context, event models.DataUpdatedEvent) error {
	var errs []error
	for _, notifier := range n.notifiers {
		if err := notifier.DataUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
