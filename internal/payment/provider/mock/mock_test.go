package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarlss/storefront/internal/payment/provider"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

func TestCreateIntentAndConfirm(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	intent, err := p.CreateIntent(ctx, 5319, "usd")
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.Equal(t, int64(5319), intent.Amount)

	ref, err := p.Confirm(ctx, intent.ClientSecret, provider.ConfirmDetails{PaymentMethod: "pm_card_visa"})
	require.NoError(t, err)
	assert.Equal(t, intent.ID, ref)
}

func TestCreateIntent_NonPositiveAmount(t *testing.T) {
	p := NewProvider()

	_, err := p.CreateIntent(context.Background(), 0, "usd")
	require.ErrorIs(t, err, apperrors.ErrPaymentSetup)
}

func TestConfirm_Declined(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	intent, err := p.CreateIntent(ctx, 100, "usd")
	require.NoError(t, err)

	_, err = p.Confirm(ctx, intent.ClientSecret, provider.ConfirmDetails{PaymentMethod: "pm_card_declined"})
	require.ErrorIs(t, err, apperrors.ErrPaymentDeclined)
}

func TestConfirm_UnknownSecret(t *testing.T) {
	p := NewProvider()

	_, err := p.Confirm(context.Background(), "bogus_secret_x", provider.ConfirmDetails{})
	require.ErrorIs(t, err, apperrors.ErrPaymentSetup)
}

func TestConfirm_CannotReplay(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	intent, err := p.CreateIntent(ctx, 100, "usd")
	require.NoError(t, err)

	_, err = p.Confirm(ctx, intent.ClientSecret, provider.ConfirmDetails{PaymentMethod: "pm_card_visa"})
	require.NoError(t, err)

	_, err = p.Confirm(ctx, intent.ClientSecret, provider.ConfirmDetails{PaymentMethod: "pm_card_visa"})
	require.ErrorIs(t, err, apperrors.ErrPaymentSetup)
}
