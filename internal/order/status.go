package order

import "fmt"

type Status string

const (
	StatusNew        Status = "new"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
	StatusApproved   Status = "approved"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusPending, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRejected, StatusApproved:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// IsTerminal reports whether no further transition is legal from s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRejected
}

// preShipping covers every state from which a cancellation may still
// restock: fulfillment has not left the warehouse yet.
func (s Status) preShipping() bool {
	switch s {
	case StatusNew, StatusPending, StatusApproved, StatusProcessing:
		return true
	}
	return false
}

// Actor identifies who is requesting a transition. Buyers may only back out
// of their own orders; sellers and admins drive fulfillment.
type Actor string

const (
	ActorBuyer  Actor = "buyer"
	ActorSeller Actor = "seller"
	ActorAdmin  Actor = "admin"
)

// fulfillment transitions shared by sellers and admins.
var sellerTransitions = map[Status][]Status{
	StatusNew:        {StatusProcessing},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusPending:    {StatusApproved, StatusRejected},
	StatusApproved:   {StatusProcessing},
}

// CanTransition decides whether actor may move an order from one status to
// another. Any pair not in the table fails with InvalidTransitionError
// naming both statuses.
func CanTransition(actor Actor, from, to Status) error {
	switch actor {
	case ActorBuyer:
		if to == StatusCancelled && (from == StatusNew || from == StatusPending || from == StatusProcessing) {
			return nil
		}
	case ActorSeller, ActorAdmin:
		for _, allowed := range sellerTransitions[from] {
			if allowed == to {
				return nil
			}
		}
		// Admins may abort any order that has not shipped.
		if actor == ActorAdmin && to == StatusCancelled && from.preShipping() {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}
