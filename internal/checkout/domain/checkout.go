package domain

import (
	"fmt"
	"math"
	"time"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
)

// Checkout stage constants. A session moves shipping -> payment -> confirmed;
// a payment decline leaves it at payment.
const (
	StageShipping  = "shipping"
	StagePayment   = "payment"
	StageConfirmed = "confirmed"
)

// ShippingAddress is the delivery address collected during checkout. All
// fields are required except Country, which defaults to "US".
type ShippingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
}

// Validate checks every required field and defaults the country.
func (a *ShippingAddress) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"email", a.Email},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"state", a.State},
		{"zip_code", a.ZipCode},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	if a.Country == "" {
		a.Country = "US"
	}
	return nil
}

// Pricing holds the configured shipping and tax parameters. Amounts are minor
// units.
type Pricing struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
	TaxRate               float64
}

// Quote is the server-computed price breakdown for a checkout session. It is
// the only source of the charge amount; client-supplied totals are never
// trusted.
type Quote struct {
	Subtotal int64  `json:"subtotal"`
	Shipping int64  `json:"shipping"`
	Tax      int64  `json:"tax"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

// ComputeQuote derives the quote for a subtotal: free shipping above the
// threshold, flat fee otherwise, tax rounded to the nearest minor unit.
func (p Pricing) ComputeQuote(subtotal int64, currency string) Quote {
	shipping := p.FlatShippingFee
	if subtotal > p.FreeShippingThreshold {
		shipping = 0
	}
	tax := int64(math.Round(float64(subtotal) * p.TaxRate))

	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
		Currency: currency,
	}
}

// Session is a server-side checkout session. It pins the cart lines and the
// quote at the moment checkout started.
type Session struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Stage           string            `json:"stage"`
	Lines           []cartdomain.Line `json:"lines"`
	Quote           Quote             `json:"quote"`
	ShippingAddress *ShippingAddress  `json:"shipping_address,omitempty"`
	PaymentMethod   string            `json:"payment_method,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	ClientSecret    string            `json:"client_secret,omitempty"`
	OrderID         string            `json:"order_id,omitempty"`
	ExpiresAt       time.Time         `json:"expires_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsExpired reports whether the session passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// OrderIntent is the immutable output of a validated checkout: everything the
// order repository needs to record the order after payment confirms.
type OrderIntent struct {
	OwnerID         string
	Lines           []cartdomain.Line
	ShippingAddress ShippingAddress
	PaymentMethod   string
	Notes           string
	Subtotal        int64
	Shipping        int64
	Tax             int64
	Total           int64
	Currency        string
}

// Intent builds the order intent from a session ready to confirm. The lines
// are copied so later session mutation cannot leak into the order.
func (s *Session) Intent() OrderIntent {
	lines := make([]cartdomain.Line, len(s.Lines))
	copy(lines, s.Lines)

	var addr ShippingAddress
	if s.ShippingAddress != nil {
		addr = *s.ShippingAddress
	}

	return OrderIntent{
		OwnerID:         s.UserID,
		Lines:           lines,
		ShippingAddress: addr,
		PaymentMethod:   s.PaymentMethod,
		Notes:           s.Notes,
		Subtotal:        s.Quote.Subtotal,
		Shipping:        s.Quote.Shipping,
		Tax:             s.Quote.Tax,
		Total:           s.Quote.Total,
		Currency:        s.Quote.Currency,
	}
}
