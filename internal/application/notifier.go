package application

import (
	"context"
	"errors"
)

type Notifier interface {
	Notify(ctx context.Context, source, detail string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _, _ string) error {
	return nil
}

// MultiNotifier delivers to every channel and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, source, detail string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, source, detail); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
