package order

import "time"

// Item is a frozen copy of a cart line at checkout time. It never re-reads
// live product data: the name, price and image stay whatever they were when
// the order was placed.
type Item struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPrice"`
	Image          string `json:"image"`
	Quantity       int    `json:"quantity"`
}

type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCashOnDelivery
}

// RequiresGateway reports whether checkout must hand the buyer a redirect
// URL to an external payment page.
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentCard
}

// Order is the immutable transaction record produced by checkout. After
// creation only the lifecycle fields (status, isPaid, paidAt, deliveredAt)
// ever change; an order is never deleted, only terminally statused.
type Order struct {
	ID                 string        `json:"id"`
	OrderNumber        string        `json:"orderNumber"`
	BuyerID            string        `json:"buyerId"`
	Items              []Item        `json:"orderItems"`
	ItemsPriceCents    int64         `json:"itemsPrice"`
	TaxPriceCents      int64         `json:"taxPrice"`
	ShippingPriceCents int64         `json:"shippingPrice"`
	TotalPriceCents    int64         `json:"totalPrice"`
	ShippingAddress    Address       `json:"shippingAddress"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	Status             Status        `json:"status"`
	IsPaid             bool          `json:"isPaid"`
	PaidAt             *time.Time    `json:"paidAt,omitempty"`
	DeliveredAt        *time.Time    `json:"deliveredAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	Notes              string        `json:"notes,omitempty"`
}
