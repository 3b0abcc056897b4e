package notifier

import (
	"context"
	"errors"
	"fmt"
)

// Notifier is told when an order has been paid.
type Notifier interface {
	NotifyOrderPaid(ctx context.Context, orderID int64, customerEmail string) error
}

// Noop discards notifications.
type Noop struct{}

func (Noop) NotifyOrderPaid(context.Context, int64, string) error { return nil }

// Multi fans a notification out to every channel. Every channel is attempted and the
// failures are joined.
type Multi []Notifier

func (m Multi) NotifyOrderPaid(ctx context.Context, orderID int64, customerEmail string) error {
	var errs []error
	for i, n := range m {
		if err := n.NotifyOrderPaid(ctx, orderID, customerEmail); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d (%T): %w", i, n, err))
		}
	}
	return errors.Join(errs...)
}

// Combine returns the smallest Notifier covering ns: Noop for none, the notifier itself
// for one, Multi otherwise.
func Combine(ns ...Notifier) Notifier {
	switch len(ns) {
	case 0:
		return Noop{}
	case 1:
		return ns[0]
	default:
		return Multi(ns)
	}
}
