package domain

import (
	"time"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
)

// Return request status constants.
const (
	ReturnStatusRequested = "requested"
	ReturnStatusApproved  = "approved"
	ReturnStatusRejected  = "rejected"
	ReturnStatusCompleted = "completed"
)

// Return reason constants.
const (
	ReasonDefective       = "defective"
	ReasonWrongItem       = "wrong-item"
	ReasonNoLongerNeeded  = "no-longer-needed"
	ReasonBetterPrice     = "better-price"
	ReasonDamagedShipping = "damaged-shipping"
	ReasonOther           = "other"
)

// Return method constants.
const (
	MethodDropoff = "dropoff"
	MethodPickup  = "pickup"
)

// ReturnRequest is a customer's request to return items from an order.
type ReturnRequest struct {
	ID           string            `json:"id"`
	OrderID      string            `json:"order_id"`
	OwnerID      string            `json:"owner_id"`
	Items        []cartdomain.Line `json:"items"`
	Reason       string            `json:"reason"`
	Comments     string            `json:"comments,omitempty"`
	Method       string            `json:"method"`
	RefundAmount int64             `json:"refund_amount"`
	Status       string            `json:"status"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ValidReturnReasons returns the closed set of return reasons.
func ValidReturnReasons() []string {
	return []string{
		ReasonDefective, ReasonWrongItem, ReasonNoLongerNeeded,
		ReasonBetterPrice, ReasonDamagedShipping, ReasonOther,
	}
}

// IsValidReturnReason reports whether reason is one of the known reasons.
func IsValidReturnReason(reason string) bool {
	for _, r := range ValidReturnReasons() {
		if r == reason {
			return true
		}
	}
	return false
}

// IsValidReturnMethod reports whether method is dropoff or pickup.
func IsValidReturnMethod(method string) bool {
	return method == MethodDropoff || method == MethodPickup
}

// returnTransitions: requested resolves to approved or rejected; approved
// completes once the refund lands.
var returnTransitions = map[string][]string{
	ReturnStatusRequested: {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:  {ReturnStatusCompleted},
	ReturnStatusRejected:  {},
	ReturnStatusCompleted: {},
}

// CanTransitionReturn reports whether a return may move between statuses.
func CanTransitionReturn(from, to string) bool {
	for _, s := range returnTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RefundFor sums price times quantity over the selected items.
func RefundFor(items []cartdomain.Line) int64 {
	var total int64
	for i := range items {
		total += items[i].Subtotal()
	}
	return total
}
