package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
	checkoutdomain "github.com/dkarlss/storefront/internal/checkout/domain"
	"github.com/dkarlss/storefront/internal/order/domain"
	"github.com/dkarlss/storefront/internal/order/event"
	"github.com/dkarlss/storefront/internal/order/repository"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// OrderService records and serves orders. Orders are append-only: one row per
// confirmed payment, identified by the payment reference, with only the status
// changing afterwards.
type OrderService struct {
	orders   repository.OrderRepository
	returns  repository.ReturnRepository
	producer *event.Producer
	log      *slog.Logger
}

// NewOrderService creates the order service.
func NewOrderService(
	orders repository.OrderRepository,
	returns repository.ReturnRepository,
	producer *event.Producer,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		returns:  returns,
		producer: producer,
		log:      log,
	}
}

// CreateFromIntent records the order for a confirmed payment. The write is
// idempotent on the payment reference: if an order already exists for it, the
// existing order is returned instead of a duplicate.
func (s *OrderService) CreateFromIntent(ctx context.Context, intent *checkoutdomain.OrderIntent, paymentReference string) (*domain.Order, error) {
	if paymentReference == "" {
		return nil, apperrors.InvalidInput("payment reference is required")
	}
	if len(intent.Lines) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one line")
	}

	now := time.Now().UTC()
	o := &domain.Order{
		ID:               uuid.New().String(),
		OwnerID:          intent.OwnerID,
		Status:           domain.StatusProcessing,
		Lines:            intent.Lines,
		ShippingAddress:  intent.ShippingAddress,
		PaymentMethod:    intent.PaymentMethod,
		PaymentReference: paymentReference,
		Subtotal:         intent.Subtotal,
		Shipping:         intent.Shipping,
		Tax:              intent.Tax,
		Total:            intent.Total,
		Currency:         intent.Currency,
		Notes:            intent.Notes,
		Tracking:         domain.NewTracking(now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			existing, getErr := s.orders.GetByPaymentReference(ctx, paymentReference)
			if getErr != nil {
				return nil, fmt.Errorf("load existing order for payment %s: %w", paymentReference, getErr)
			}
			s.log.InfoContext(ctx, "order already recorded for payment reference",
				slog.String("order_id", existing.ID),
				slog.String("payment_reference", paymentReference))
			return existing, nil
		}
		return nil, err
	}

	if err := s.producer.PublishOrderCreated(ctx, o); err != nil {
		s.log.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", o.ID), slog.String("error", err.Error()))
	}

	s.log.InfoContext(ctx, "order recorded",
		slog.String("order_id", o.ID),
		slog.String("user_id", o.OwnerID),
		slog.Int64("total", o.Total))
	return o, nil
}

// GetOrder retrieves one of the owner's orders. Orders belonging to other
// users read as not found.
func (s *OrderService) GetOrder(ctx context.Context, ownerID, orderID string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, apperrors.NotFound("order", orderID)
	}
	return o, nil
}

// ListOrders returns the owner's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, ownerID string) ([]domain.Order, error) {
	return s.orders.ListByOwner(ctx, ownerID)
}

// UpdateStatus moves an order along the fulfillment path. The repository
// enforces the transition graph; a violation surfaces as a conflict.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	fromStatus := o.Status

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	o.Status = status
	o.Tracking.Status = status
	o.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishOrderStatusChanged(ctx, o, fromStatus); err != nil {
		s.log.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", o.ID), slog.String("error", err.Error()))
	}

	return o, nil
}

// ReturnItemInput selects a line from the order by variant and quantity.
type ReturnItemInput struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// RequestReturnInput is the payload for opening a return.
type RequestReturnInput struct {
	OrderID  string            `json:"order_id"`
	Items    []ReturnItemInput `json:"items"`
	Reason   string            `json:"reason"`
	Comments string            `json:"comments"`
	Method   string            `json:"method"`
}

// RequestReturn opens a return for a delivered order inside the return
// window. The refund amount is derived from the order's own prices, never
// from the request. An empty item selection returns the whole order.
func (s *OrderService) RequestReturn(ctx context.Context, ownerID string, input *RequestReturnInput) (*domain.ReturnRequest, error) {
	if !domain.IsValidReturnReason(input.Reason) {
		return nil, apperrors.InvalidInput("unknown return reason: " + input.Reason)
	}
	if !domain.IsValidReturnMethod(input.Method) {
		return nil, apperrors.InvalidInput("unknown return method: " + input.Method)
	}

	o, err := s.GetOrder(ctx, ownerID, input.OrderID)
	if err != nil {
		return nil, err
	}

	if o.Status != domain.StatusDelivered {
		return nil, apperrors.Conflict("only delivered orders can be returned")
	}
	if !o.ReturnEligible(time.Now().UTC()) {
		return nil, apperrors.Conflict("the 30-day return window for this order has closed")
	}

	items, err := selectReturnItems(o, input.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ret := &domain.ReturnRequest{
		ID:           uuid.New().String(),
		OrderID:      o.ID,
		OwnerID:      ownerID,
		Items:        items,
		Reason:       input.Reason,
		Comments:     input.Comments,
		Method:       input.Method,
		RefundAmount: domain.RefundFor(items),
		Status:       domain.ReturnStatusRequested,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.returns.Create(ctx, ret); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("a return is already open for this order")
		}
		return nil, err
	}

	if err := s.producer.PublishReturnRequested(ctx, ret); err != nil {
		s.log.ErrorContext(ctx, "failed to publish return.requested event",
			slog.String("return_id", ret.ID), slog.String("error", err.Error()))
	}

	s.log.InfoContext(ctx, "return requested",
		slog.String("return_id", ret.ID),
		slog.String("order_id", o.ID),
		slog.Int64("refund_amount", ret.RefundAmount))
	return ret, nil
}

// selectReturnItems resolves the requested items against the order's lines.
// Quantities are capped by what was ordered and prices always come from the
// order.
func selectReturnItems(o *domain.Order, selections []ReturnItemInput) ([]cartdomain.Line, error) {
	if len(selections) == 0 {
		items := make([]cartdomain.Line, len(o.Lines))
		copy(items, o.Lines)
		return items, nil
	}

	byVariant := make(map[string]cartdomain.Line, len(o.Lines))
	for _, line := range o.Lines {
		byVariant[line.VariantKey()] = line
	}

	items := make([]cartdomain.Line, 0, len(selections))
	for _, sel := range selections {
		key := cartdomain.VariantKey(sel.ProductID, sel.Size, sel.Color)
		line, ok := byVariant[key]
		if !ok {
			return nil, apperrors.InvalidInput("item " + key + " is not part of this order")
		}
		if sel.Quantity <= 0 || sel.Quantity > line.Quantity {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid return quantity %d for item %s", sel.Quantity, key))
		}
		line.Quantity = sel.Quantity
		items = append(items, line)
	}

	return items, nil
}

// GetReturn retrieves one of the owner's return requests.
func (s *OrderService) GetReturn(ctx context.Context, ownerID, returnID string) (*domain.ReturnRequest, error) {
	ret, err := s.returns.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.OwnerID != ownerID {
		return nil, apperrors.NotFound("return request", returnID)
	}
	return ret, nil
}

// ListReturns returns the owner's return requests, newest first.
func (s *OrderService) ListReturns(ctx context.Context, ownerID string) ([]domain.ReturnRequest, error) {
	return s.returns.ListByOwner(ctx, ownerID)
}

// ResolveReturn moves a return through its lifecycle. Completing a return
// also moves the order to returned.
func (s *OrderService) ResolveReturn(ctx context.Context, returnID, status string) (*domain.ReturnRequest, error) {
	ret, err := s.returns.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if err := s.returns.UpdateStatus(ctx, returnID, status); err != nil {
		return nil, err
	}

	if status == domain.ReturnStatusCompleted {
		if err := s.orders.UpdateStatus(ctx, ret.OrderID, domain.StatusReturned); err != nil {
			s.log.ErrorContext(ctx, "failed to mark order returned",
				slog.String("order_id", ret.OrderID), slog.String("error", err.Error()))
		}
	}

	return s.returns.GetByID(ctx, returnID)
}
