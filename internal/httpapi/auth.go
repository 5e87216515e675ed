package httpapi

import (
	"net/http"

	"github.com/andreasstove999/storefront-core/internal/order"
)

// Identity is resolved from headers the API gateway sets after verifying the
// caller's token. The core trusts the gateway; it never sees credentials.
type Identity struct {
	UserID string
	Actor  order.Actor
}

func identityFrom(r *http.Request) (Identity, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		return Identity{}, false
	}

	actor := order.ActorBuyer
	switch r.Header.Get("X-User-Role") {
	case "seller":
		actor = order.ActorSeller
	case "admin":
		actor = order.ActorAdmin
	}
	return Identity{UserID: userID, Actor: actor}, true
}

// requireIdentity writes a 401 and returns false when the gateway headers
// are missing.
func requireIdentity(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
	}
	return id, ok
}

// requireStaff additionally rejects plain buyers.
func requireStaff(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return Identity{}, false
	}
	if id.Actor != order.ActorSeller && id.Actor != order.ActorAdmin {
		writeError(w, http.StatusForbidden, "seller or admin role required")
		return Identity{}, false
	}
	return id, true
}
