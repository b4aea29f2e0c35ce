package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dkarlss/storefront/internal/payment/provider"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// declinePaymentMethod triggers a decline in development, mirroring the
// gateway's test cards.
const declinePaymentMethod = "pm_card_declined"

// Provider is an in-memory gateway for development and tests. Intents are
// held until confirmed; confirming with the decline payment method fails the
// attempt without consuming the intent.
type Provider struct {
	mu      sync.Mutex
	intents map[string]*provider.Intent
}

// NewProvider creates the mock provider.
func NewProvider() *Provider {
	return &Provider{intents: make(map[string]*provider.Intent)}
}

// CreateIntent issues a new intent with a generated client secret.
func (p *Provider) CreateIntent(_ context.Context, amount int64, currency string) (*provider.Intent, error) {
	if amount <= 0 {
		return nil, apperrors.PaymentSetup("amount must be greater than zero")
	}

	id := "mock_pi_" + uuid.New().String()
	intent := &provider.Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String(),
		Amount:       amount,
		Currency:     currency,
	}

	p.mu.Lock()
	p.intents[intent.ClientSecret] = intent
	p.mu.Unlock()

	return intent, nil
}

// Confirm resolves the intent. Unknown client secrets are setup failures so a
// replayed confirmation cannot succeed twice.
func (p *Provider) Confirm(_ context.Context, clientSecret string, details provider.ConfirmDetails) (string, error) {
	p.mu.Lock()
	intent, ok := p.intents[clientSecret]
	if ok && !strings.EqualFold(details.PaymentMethod, declinePaymentMethod) {
		delete(p.intents, clientSecret)
	}
	p.mu.Unlock()

	if !ok {
		return "", apperrors.PaymentSetup("unknown or already confirmed payment intent")
	}
	if strings.EqualFold(details.PaymentMethod, declinePaymentMethod) {
		return "", apperrors.PaymentDeclined("your card was declined")
	}

	return intent.ID, nil
}
