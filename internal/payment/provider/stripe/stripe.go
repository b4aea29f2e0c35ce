package stripe

import (
	"context"
	"errors"
	"strings"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/dkarlss/storefront/internal/payment/provider"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// Provider implements the payment gateway contract against Stripe.
type Provider struct {
	api *client.API
}

// NewProvider creates a Stripe-backed provider with the given secret key.
func NewProvider(secretKey string) *Provider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Provider{api: api}
}

// CreateIntent creates a Stripe PaymentIntent for the given amount.
func (p *Provider) CreateIntent(ctx context.Context, amount int64, currency string) (*provider.Intent, error) {
	params := &stripelib.PaymentIntentParams{
		Amount:   stripelib.Int64(amount),
		Currency: stripelib.String(currency),
		AutomaticPaymentMethods: &stripelib.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripelib.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, apperrors.PaymentSetup("payment could not be initialized: " + gatewayMessage(err))
	}

	return &provider.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     currency,
	}, nil
}

// Confirm confirms the intent behind the given client secret and returns the
// PaymentIntent ID as the payment reference. Card failures map to a declined
// error; anything else is a setup failure.
func (p *Provider) Confirm(ctx context.Context, clientSecret string, details provider.ConfirmDetails) (string, error) {
	intentID := intentIDFromSecret(clientSecret)
	if intentID == "" {
		return "", apperrors.PaymentSetup("malformed client secret")
	}

	params := &stripelib.PaymentIntentConfirmParams{}
	if details.PaymentMethod != "" {
		params.PaymentMethod = stripelib.String(details.PaymentMethod)
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		var stripeErr *stripelib.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripelib.ErrorTypeCard {
			return "", apperrors.PaymentDeclined(declineMessage(stripeErr))
		}
		return "", apperrors.PaymentSetup("payment confirmation failed: " + gatewayMessage(err))
	}

	if pi.Status != stripelib.PaymentIntentStatusSucceeded {
		return "", apperrors.PaymentDeclined("payment was not completed")
	}

	return pi.ID, nil
}

// intentIDFromSecret extracts the PaymentIntent ID from a client secret of
// the form "pi_xxx_secret_yyy".
func intentIDFromSecret(clientSecret string) string {
	id, _, found := strings.Cut(clientSecret, "_secret")
	if !found {
		return ""
	}
	return id
}

func gatewayMessage(err error) string {
	var stripeErr *stripelib.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

func declineMessage(stripeErr *stripelib.Error) string {
	if stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return "your card was declined"
}
