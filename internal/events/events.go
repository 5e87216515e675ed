package events

import (
	"time"

	"github.com/andreasstove999/storefront-core/internal/order"
)

// Queue names. One durable queue per event type, declared by the publisher
// so publishing never fails on missing infra.
const (
	OrderCreatedQueue       = "order.created"
	OrderStatusChangedQueue = "order.status_changed"
	OrderPaidQueue          = "order.paid"
)

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type OrderCreated struct {
	EventType   string      `json:"eventType"`
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	BuyerID     string      `json:"buyerId"`
	Status      string      `json:"status"`
	Items       []OrderItem `json:"items"`
	TotalPrice  int64       `json:"totalPrice"`
	Timestamp   time.Time   `json:"timestamp"`
}

type OrderStatusChanged struct {
	EventType   string    `json:"eventType"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	BuyerID     string    `json:"buyerId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Timestamp   time.Time `json:"timestamp"`
}

type OrderPaid struct {
	EventType   string    `json:"eventType"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	BuyerID     string    `json:"buyerId"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewOrderCreated(o *order.Order, at time.Time) OrderCreated {
	ev := OrderCreated{
		EventType:   "OrderCreated",
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		Status:      string(o.Status),
		TotalPrice:  o.TotalPriceCents,
		Timestamp:   at,
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPriceCents,
		})
	}
	return ev
}

func NewOrderStatusChanged(o *order.Order, from, to order.Status, at time.Time) OrderStatusChanged {
	return OrderStatusChanged{
		EventType:   "OrderStatusChanged",
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		From:        string(from),
		To:          string(to),
		Timestamp:   at,
	}
}

func NewOrderPaid(o *order.Order, at time.Time) OrderPaid {
	return OrderPaid{
		EventType:   "OrderPaid",
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		Timestamp:   at,
	}
}
