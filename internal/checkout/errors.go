package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to check out")

// ValidationError names every missing or malformed field so the caller can
// fix the submission and retry.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid checkout request: %s", strings.Join(e.Fields, ", "))
}

// PaymentGatewayError surfaces a failed session creation. The core never
// retries it; the order already exists and the caller decides what to do.
type PaymentGatewayError struct {
	OrderID string
	Err     error
}

func (e *PaymentGatewayError) Error() string {
	return fmt.Sprintf("payment gateway failed for order %s: %v", e.OrderID, e.Err)
}

func (e *PaymentGatewayError) Unwrap() error { return e.Err }
