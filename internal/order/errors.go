package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrUnauthorized covers acting on another buyer's order or a buyer
	// attempting a seller-only transition.
	ErrUnauthorized = errors.New("not allowed to act on this order")
)

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
