package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarlss/storefront/internal/payment/provider"
	"github.com/dkarlss/storefront/internal/payment/provider/mock"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

func newTestRelay() *Relay {
	return NewRelay(mock.NewProvider(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRelay_CreateIntent(t *testing.T) {
	relay := newTestRelay()

	intent, err := relay.CreateIntent(context.Background(), 5319, "usd")
	require.NoError(t, err)
	assert.NotEmpty(t, intent.ClientSecret)
}

func TestRelay_CreateIntent_RejectsNonPositiveAmount(t *testing.T) {
	relay := newTestRelay()

	_, err := relay.CreateIntent(context.Background(), 0, "usd")
	require.ErrorIs(t, err, apperrors.ErrPaymentSetup)

	_, err = relay.CreateIntent(context.Background(), -100, "usd")
	require.ErrorIs(t, err, apperrors.ErrPaymentSetup)
}

func TestRelay_ConfirmRoundTrip(t *testing.T) {
	relay := newTestRelay()
	ctx := context.Background()

	intent, err := relay.CreateIntent(ctx, 100, "usd")
	require.NoError(t, err)

	ref, err := relay.Confirm(ctx, intent.ClientSecret, provider.ConfirmDetails{PaymentMethod: "pm_card_visa"})
	require.NoError(t, err)
	assert.Equal(t, intent.ID, ref)
}

func TestRelay_ConfirmDeclinePropagates(t *testing.T) {
	relay := newTestRelay()
	ctx := context.Background()

	intent, err := relay.CreateIntent(ctx, 100, "usd")
	require.NoError(t, err)

	_, err = relay.Confirm(ctx, intent.ClientSecret, provider.ConfirmDetails{PaymentMethod: "pm_card_declined"})
	require.ErrorIs(t, err, apperrors.ErrPaymentDeclined)
}
