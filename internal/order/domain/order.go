package domain

import (
	"fmt"
	"time"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
	checkoutdomain "github.com/dkarlss/storefront/internal/checkout/domain"
)

// Order status constants.
const (
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusReturned   = "returned"
)

// defaultCarrier ships every order until real carrier integration exists.
const defaultCarrier = "Storefront Logistics"

// estimatedTransitDays is the delivery estimate offset from order creation.
const estimatedTransitDays = 7

// Tracking is the shipment tracking block attached to every order.
type Tracking struct {
	Number            string    `json:"number"`
	Carrier           string    `json:"carrier"`
	Status            string    `json:"status"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

// NewTracking builds the initial tracking block for an order created at the
// given time. The number is "TRK" plus the creation epoch in milliseconds.
func NewTracking(createdAt time.Time) Tracking {
	return Tracking{
		Number:            fmt.Sprintf("TRK%d", createdAt.UnixMilli()),
		Carrier:           defaultCarrier,
		Status:            StatusProcessing,
		EstimatedDelivery: createdAt.Add(estimatedTransitDays * 24 * time.Hour),
	}
}

// Order is a recorded purchase. It is created exactly once per successful
// payment confirmation and its lines are a frozen copy of the cart at that
// moment; only the status (and tracking status) mutate afterwards.
type Order struct {
	ID               string                         `json:"id"`
	OwnerID          string                         `json:"owner_id"`
	Status           string                         `json:"status"`
	Lines            []cartdomain.Line              `json:"lines"`
	ShippingAddress  checkoutdomain.ShippingAddress `json:"shipping_address"`
	PaymentMethod    string                         `json:"payment_method"`
	PaymentReference string                         `json:"payment_reference"`
	Subtotal         int64                          `json:"subtotal"`
	Shipping         int64                          `json:"shipping"`
	Tax              int64                          `json:"tax"`
	Total            int64                          `json:"total"`
	Currency         string                         `json:"currency"`
	Notes            string                         `json:"notes,omitempty"`
	Tracking         Tracking                       `json:"tracking"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
}

// ValidStatuses returns every order status.
func ValidStatuses() []string {
	return []string{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusReturned}
}

// IsValidStatus reports whether status names a known order status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// allowedTransitions is the strict status graph: the fulfillment path with
// cancellation and return as side exits.
var allowedTransitions = map[string][]string{
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusReturned},
	StatusCancelled:  {},
	StatusReturned:   {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// returnWindow is how long after creation an order stays return-eligible.
const returnWindow = 30 * 24 * time.Hour

// ReturnEligible reports whether a return can still be requested for the
// order at the given time.
func (o *Order) ReturnEligible(now time.Time) bool {
	return now.Sub(o.CreatedAt) <= returnWindow
}
