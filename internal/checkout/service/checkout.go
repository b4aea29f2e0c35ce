package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
	"github.com/dkarlss/storefront/internal/checkout/domain"
	"github.com/dkarlss/storefront/internal/checkout/repository"
	orderdomain "github.com/dkarlss/storefront/internal/order/domain"
	"github.com/dkarlss/storefront/internal/payment/provider"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// CartAccess is the slice of the cart service checkout needs: read the cart
// to pin its lines, clear it after the order is recorded.
type CartAccess interface {
	GetCart(ctx context.Context, userID string) (*cartdomain.Snapshot, error)
	Clear(ctx context.Context, userID string) error
}

// PaymentRelay is the two-phase payment surface checkout drives.
type PaymentRelay interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (*provider.Intent, error)
	Confirm(ctx context.Context, clientSecret string, details provider.ConfirmDetails) (string, error)
}

// OrderRecorder records the order for a confirmed payment.
type OrderRecorder interface {
	CreateFromIntent(ctx context.Context, intent *domain.OrderIntent, paymentReference string) (*orderdomain.Order, error)
}

// CheckoutService drives a checkout session from cart snapshot to recorded
// order. On confirmation the sequence is fixed: confirm the charge, record
// the order, then clear the cart. The cart is never cleared before the order
// row exists.
type CheckoutService struct {
	sessions repository.SessionRepository
	cart     CartAccess
	relay    PaymentRelay
	orders   OrderRecorder
	pricing  domain.Pricing
	ttl      time.Duration
	currency string
	log      *slog.Logger
}

// NewCheckoutService creates the checkout service.
func NewCheckoutService(
	sessions repository.SessionRepository,
	cart CartAccess,
	relay PaymentRelay,
	orders OrderRecorder,
	pricing domain.Pricing,
	ttl time.Duration,
	currency string,
	log *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		sessions: sessions,
		cart:     cart,
		relay:    relay,
		orders:   orders,
		pricing:  pricing,
		ttl:      ttl,
		currency: currency,
		log:      log,
	}
}

// Start opens a checkout session from the current cart. The cart lines and
// the quote are pinned into the session; later cart edits do not affect it.
func (s *CheckoutService) Start(ctx context.Context, userID string) (*domain.Session, error) {
	snap, err := s.cart.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(snap.Lines) == 0 {
		return nil, apperrors.InvalidInput("cannot start checkout with an empty cart")
	}

	lines := make([]cartdomain.Line, len(snap.Lines))
	copy(lines, snap.Lines)

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Stage:     domain.StageShipping,
		Lines:     lines,
		Quote:     s.pricing.ComputeQuote(snap.TotalAmount, s.currency),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout started",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.Int64("total", session.Quote.Total))
	return session, nil
}

// GetSession retrieves one of the owner's sessions.
func (s *CheckoutService) GetSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	return s.loadSession(ctx, userID, sessionID)
}

// SetShippingAddress validates and attaches the address, advancing the
// session to the payment stage. Re-submitting at the payment stage replaces
// the address and voids any intent created for the old one.
func (s *CheckoutService) SetShippingAddress(ctx context.Context, userID, sessionID string, addr domain.ShippingAddress, notes string) (*domain.Session, error) {
	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage == domain.StageConfirmed {
		return nil, apperrors.Conflict("checkout session is already confirmed")
	}

	if err := addr.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	session.ShippingAddress = &addr
	session.Notes = notes
	session.Stage = domain.StagePayment
	session.ClientSecret = ""
	session.UpdatedAt = time.Now().UTC()

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CreateIntentInput carries the payment method plus the client's displayed
// total, which is only cross-checked.
type CreateIntentInput struct {
	PaymentMethod string
	ClientTotal   int64
}

// CreatePaymentIntent reserves the charge for the session's quote. The
// amount always comes from the server-side quote; a mismatching client total
// is logged and ignored.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, userID, sessionID string, input CreateIntentInput) (*domain.Session, error) {
	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != domain.StagePayment {
		return nil, apperrors.Conflict("shipping address must be set before payment")
	}

	if input.ClientTotal > 0 && input.ClientTotal != session.Quote.Total {
		s.log.WarnContext(ctx, "client total does not match server quote, using server amount",
			slog.String("session_id", session.ID),
			slog.Int64("client_total", input.ClientTotal),
			slog.Int64("server_total", session.Quote.Total))
	}

	intent, err := s.relay.CreateIntent(ctx, session.Quote.Total, session.Quote.Currency)
	if err != nil {
		return nil, err
	}

	session.PaymentMethod = input.PaymentMethod
	session.ClientSecret = intent.ClientSecret
	session.UpdatedAt = time.Now().UTC()

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Confirm executes the charge and records the order. On success the cart is
// cleared and the session is confirmed. A decline voids the intent and
// leaves the session at the payment stage for a fresh attempt. If the order
// write fails after the charge succeeded, the failure surfaces as
// ORDER_NOT_RECORDED and the cart is left untouched.
func (s *CheckoutService) Confirm(ctx context.Context, userID, sessionID string) (*orderdomain.Order, error) {
	session, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != domain.StagePayment {
		return nil, apperrors.Conflict("checkout session is not ready to confirm")
	}
	if session.ClientSecret == "" {
		return nil, apperrors.Conflict("no payment intent exists for this session")
	}

	reference, err := s.relay.Confirm(ctx, session.ClientSecret, provider.ConfirmDetails{
		PaymentMethod: session.PaymentMethod,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrPaymentDeclined) {
			session.ClientSecret = ""
			session.UpdatedAt = time.Now().UTC()
			if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
				s.log.ErrorContext(ctx, "failed to void intent on declined session",
					slog.String("session_id", session.ID),
					slog.String("error", saveErr.Error()))
			}
		}
		return nil, err
	}

	intent := session.Intent()
	order, err := s.orders.CreateFromIntent(ctx, &intent, reference)
	if err != nil {
		s.log.ErrorContext(ctx, "order write failed after successful charge",
			slog.String("session_id", session.ID),
			slog.String("payment_reference", reference),
			slog.String("error", err.Error()))
		return nil, apperrors.OrderNotRecorded(err)
	}

	// The charge is captured and the order row exists; only now may the cart
	// go away. A failed clear is logged, never surfaced.
	if err := s.cart.Clear(ctx, userID); err != nil {
		s.log.ErrorContext(ctx, "failed to clear cart after order",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()))
	}

	session.Stage = domain.StageConfirmed
	session.OrderID = order.ID
	session.ClientSecret = ""
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.log.ErrorContext(ctx, "failed to persist confirmed session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
	}

	s.log.InfoContext(ctx, "checkout confirmed",
		slog.String("session_id", session.ID),
		slog.String("order_id", order.ID),
		slog.String("payment_reference", reference))
	return order, nil
}

func (s *CheckoutService) loadSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperrors.NotFound("checkout session", sessionID)
	}
	if session.IsExpired() {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.log.WarnContext(ctx, "failed to delete expired session",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
		return nil, apperrors.NotFound("checkout session", sessionID)
	}
	return session, nil
}
