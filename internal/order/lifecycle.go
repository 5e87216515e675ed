package order

import (
	"context"
	"log"
	"time"
)

// Notifier fans order events out to interested parties (UI toasts, mail).
// Implementations are fire-and-forget: they log failures and never block a
// transition on delivery.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, o *Order, from, to Status)
	OrderPaid(ctx context.Context, o *Order)
}

// Lifecycle wraps the repository's atomic transition with authorization and
// notifications. Buyers may only act on their own orders; sellers and
// admins act on any.
type Lifecycle struct {
	repo     Repository
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

func NewLifecycle(repo Repository, notifier Notifier, logger *log.Logger) *Lifecycle {
	return &Lifecycle{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Transition applies a status change requested by actorID acting as actor.
func (l *Lifecycle) Transition(ctx context.Context, actor Actor, actorID, orderID string, to Status) (*Order, error) {
	current, err := l.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor == ActorBuyer && current.BuyerID != actorID {
		return nil, ErrUnauthorized
	}

	from := current.Status
	updated, err := l.repo.Transition(ctx, actor, orderID, to, l.now().UTC())
	if err != nil {
		return nil, err
	}

	l.logger.Printf("order %s: %s -> %s (by %s)", updated.OrderNumber, from, to, actor)
	l.notifier.OrderStatusChanged(ctx, updated, from, to)
	return updated, nil
}

// Cancel is the buyer-facing shorthand for a transition to CANCELLED.
func (l *Lifecycle) Cancel(ctx context.Context, actor Actor, actorID, orderID string) (*Order, error) {
	return l.Transition(ctx, actor, actorID, orderID, StatusCancelled)
}

// ConfirmPayment handles the payment webhook: it stamps isPaid/paidAt
// independent of the order's status.
func (l *Lifecycle) ConfirmPayment(ctx context.Context, orderID string) (*Order, error) {
	o, err := l.repo.MarkPaid(ctx, orderID, l.now().UTC())
	if err != nil {
		return nil, err
	}

	l.logger.Printf("order %s: payment confirmed", o.OrderNumber)
	l.notifier.OrderPaid(ctx, o)
	return o, nil
}
