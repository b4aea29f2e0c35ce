package provider

import "context"

// Intent is a payment intent created at the gateway. The client secret is
// handed to the caller to confirm the charge; the intent ID stays server-side.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// ConfirmDetails carries what the gateway needs to confirm an intent.
type ConfirmDetails struct {
	PaymentMethod string `json:"payment_method"`
}

// Provider is the two-phase payment gateway contract. CreateIntent reserves a
// charge; Confirm executes it and returns the gateway's payment reference.
// A declined confirmation is terminal for that intent; the caller must create
// a fresh intent to retry. Implementations never retry on their own.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
	Confirm(ctx context.Context, clientSecret string, details ConfirmDetails) (string, error)
}
