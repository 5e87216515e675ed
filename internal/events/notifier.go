package events

import (
	"context"
	"log"

	"github.com/andreasstove999/storefront-core/internal/order"
)

// Notifier adapts the Publisher to the fire-and-forget notification
// interfaces the checkout and order services expect. A broker outage is
// logged and swallowed: event delivery never fails a request that already
// committed.
type Notifier struct {
	pub    *Publisher
	logger *log.Logger
}

func NewNotifier(pub *Publisher, logger *log.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger}
}

func (n *Notifier) OrderCreated(ctx context.Context, o *order.Order) {
	if err := n.pub.PublishOrderCreated(ctx, o); err != nil {
		n.logger.Printf("publish OrderCreated for %s: %v", o.OrderNumber, err)
	}
}

func (n *Notifier) OrderStatusChanged(ctx context.Context, o *order.Order, from, to order.Status) {
	if err := n.pub.PublishOrderStatusChanged(ctx, o, from, to); err != nil {
		n.logger.Printf("publish OrderStatusChanged for %s: %v", o.OrderNumber, err)
	}
}

func (n *Notifier) OrderPaid(ctx context.Context, o *order.Order) {
	if err := n.pub.PublishOrderPaid(ctx, o); err != nil {
		n.logger.Printf("publish OrderPaid for %s: %v", o.OrderNumber, err)
	}
}
