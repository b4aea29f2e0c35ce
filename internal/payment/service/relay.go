package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dkarlss/storefront/internal/payment/provider"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

var paymentAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Payment attempts by phase and outcome",
	},
	[]string{"phase", "outcome"},
)

// Relay fronts the payment gateway. It validates amounts before the gateway
// sees them and never retries a declined confirmation; the caller starts over
// with a fresh intent.
type Relay struct {
	provider provider.Provider
	log      *slog.Logger
}

// NewRelay creates the payment relay over the given provider.
func NewRelay(p provider.Provider, log *slog.Logger) *Relay {
	return &Relay{provider: p, log: log}
}

// CreateIntent reserves a charge for the given amount.
func (r *Relay) CreateIntent(ctx context.Context, amount int64, currency string) (*provider.Intent, error) {
	if amount <= 0 {
		paymentAttempts.WithLabelValues("create", "invalid").Inc()
		return nil, apperrors.PaymentSetup("charge amount must be greater than zero")
	}

	intent, err := r.provider.CreateIntent(ctx, amount, currency)
	if err != nil {
		paymentAttempts.WithLabelValues("create", "failed").Inc()
		r.log.ErrorContext(ctx, "payment intent creation failed",
			slog.Int64("amount", amount),
			slog.String("currency", currency),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	paymentAttempts.WithLabelValues("create", "ok").Inc()
	r.log.InfoContext(ctx, "payment intent created",
		slog.String("intent_id", intent.ID),
		slog.Int64("amount", amount),
		slog.String("currency", currency),
	)

	return intent, nil
}

// Confirm executes the charge behind the client secret and returns the
// gateway payment reference.
func (r *Relay) Confirm(ctx context.Context, clientSecret string, details provider.ConfirmDetails) (string, error) {
	reference, err := r.provider.Confirm(ctx, clientSecret, details)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, apperrors.ErrPaymentDeclined) {
			outcome = "declined"
		}
		paymentAttempts.WithLabelValues("confirm", outcome).Inc()
		r.log.WarnContext(ctx, "payment confirmation failed",
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	paymentAttempts.WithLabelValues("confirm", "ok").Inc()
	r.log.InfoContext(ctx, "payment confirmed", slog.String("payment_reference", reference))

	return reference, nil
}
