package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/andreasstove999/storefront-core/internal/order"
	"github.com/andreasstove999/storefront-core/internal/pricing"
)

// Gateway produces a hosted-checkout redirect for an order. Payment
// confirmation arrives asynchronously through the webhook, never through
// this call.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, o *order.Order) (string, error)
}

var ErrNotConfigured = errors.New("payment gateway base url not configured")

// HostedCheckout builds redirect URLs for an external hosted payment page.
// The page calls back into POST /api/payments/webhook once the buyer pays.
type HostedCheckout struct {
	baseURL string
}

func NewHostedCheckout(baseURL string) *HostedCheckout {
	return &HostedCheckout{baseURL: baseURL}
}

func (g *HostedCheckout) CreateCheckoutSession(ctx context.Context, o *order.Order) (string, error) {
	if g.baseURL == "" {
		return "", ErrNotConfigured
	}

	u, err := url.Parse(g.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway base url: %w", err)
	}
	u = u.JoinPath("checkout", o.ID)

	q := u.Query()
	q.Set("amount", pricing.FormatCents(o.TotalPriceCents))
	q.Set("reference", o.OrderNumber)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// WebhookEvent is the payload the gateway posts back on payment completion.
type WebhookEvent struct {
	OrderID   string `json:"orderId"`
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}
