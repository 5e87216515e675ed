package pricing

import "fmt"

// All amounts are in minor currency units (cents). Integer math keeps
// repeated recomputation of an order's totals drift-free.

type Config struct {
	// TaxRateBps is the tax rate in basis points (1500 = 15%).
	TaxRateBps int64
	// FreeShippingThresholdCents waives shipping when the subtotal exceeds it.
	FreeShippingThresholdCents int64
	ShippingFeeCents           int64
}

func DefaultConfig() Config {
	return Config{
		TaxRateBps:                 1500,
		FreeShippingThresholdCents: 10000,
		ShippingFeeCents:           1000,
	}
}

type Line struct {
	UnitPriceCents int64
	Quantity       int
}

type Totals struct {
	SubtotalCents int64 `json:"subtotal"`
	TaxCents      int64 `json:"tax"`
	ShippingCents int64 `json:"shipping"`
	TotalCents    int64 `json:"total"`
}

// ComputeTotals derives the money breakdown for a set of cart lines.
// Tax is rounded half-up to the nearest cent.
func ComputeTotals(lines []Line, cfg Config) Totals {
	var subtotal int64
	for _, ln := range lines {
		subtotal += ln.UnitPriceCents * int64(ln.Quantity)
	}

	tax := (subtotal*cfg.TaxRateBps + 5000) / 10000

	var shipping int64
	if subtotal > 0 && subtotal <= cfg.FreeShippingThresholdCents {
		shipping = cfg.ShippingFeeCents
	}

	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    subtotal + tax + shipping,
	}
}

// FormatCents renders a minor-unit amount for display, e.g. 11350 -> "113.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
