package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkarlss/storefront/internal/order/domain"
	pkgkafka "github.com/dkarlss/storefront/pkg/kafka"
)

// Kafka topics for order domain events.
const (
	TopicOrderCreated       = "storefront.order.created"
	TopicOrderStatusChanged = "storefront.order.status_changed"
	TopicReturnRequested    = "storefront.return.requested"
)

const (
	entityTypeOrder  = "order"
	entityTypeReturn = "return_request"
	source           = "storefront"
)

// OrderCreatedPayload is the body of an order.created event.
type OrderCreatedPayload struct {
	OrderID          string `json:"order_id"`
	OwnerID          string `json:"owner_id"`
	PaymentReference string `json:"payment_reference"`
	Subtotal         int64  `json:"subtotal"`
	Shipping         int64  `json:"shipping"`
	Tax              int64  `json:"tax"`
	Total            int64  `json:"total"`
	Currency         string `json:"currency"`
	LineCount        int    `json:"line_count"`
}

// OrderStatusChangedPayload is the body of an order.status_changed event.
type OrderStatusChangedPayload struct {
	OrderID    string `json:"order_id"`
	OwnerID    string `json:"owner_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// ReturnRequestedPayload is the body of a return.requested event.
type ReturnRequestedPayload struct {
	ReturnID     string `json:"return_id"`
	OrderID      string `json:"order_id"`
	OwnerID      string `json:"owner_id"`
	Reason       string `json:"reason"`
	Method       string `json:"method"`
	RefundAmount int64  `json:"refund_amount"`
	ItemCount    int    `json:"item_count"`
}

// Producer publishes order domain events.
type Producer struct {
	kafka *pkgkafka.Producer
	log   *slog.Logger
}

// NewProducer creates an order event producer.
func NewProducer(kafka *pkgkafka.Producer, log *slog.Logger) *Producer {
	return &Producer{kafka: kafka, log: log}
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	payload := OrderCreatedPayload{
		OrderID:          o.ID,
		OwnerID:          o.OwnerID,
		PaymentReference: o.PaymentReference,
		Subtotal:         o.Subtotal,
		Shipping:         o.Shipping,
		Tax:              o.Tax,
		Total:            o.Total,
		Currency:         o.Currency,
		LineCount:        len(o.Lines),
	}

	ev, err := pkgkafka.NewEvent(TopicOrderCreated, o.ID, entityTypeOrder, source, payload)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, ev); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.log.DebugContext(ctx, "published order.created event", slog.String("order_id", o.ID))
	return nil
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *domain.Order, fromStatus string) error {
	payload := OrderStatusChangedPayload{
		OrderID:    o.ID,
		OwnerID:    o.OwnerID,
		FromStatus: fromStatus,
		ToStatus:   o.Status,
	}

	ev, err := pkgkafka.NewEvent(TopicOrderStatusChanged, o.ID, entityTypeOrder, source, payload)
	if err != nil {
		return fmt.Errorf("create order.status_changed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderStatusChanged, ev); err != nil {
		return fmt.Errorf("publish order.status_changed event: %w", err)
	}

	return nil
}

// PublishReturnRequested publishes a return.requested event.
func (p *Producer) PublishReturnRequested(ctx context.Context, ret *domain.ReturnRequest) error {
	payload := ReturnRequestedPayload{
		ReturnID:     ret.ID,
		OrderID:      ret.OrderID,
		OwnerID:      ret.OwnerID,
		Reason:       ret.Reason,
		Method:       ret.Method,
		RefundAmount: ret.RefundAmount,
		ItemCount:    len(ret.Items),
	}

	ev, err := pkgkafka.NewEvent(TopicReturnRequested, ret.ID, entityTypeReturn, source, payload)
	if err != nil {
		return fmt.Errorf("create return.requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReturnRequested, ev); err != nil {
		return fmt.Errorf("publish return.requested event: %w", err)
	}

	return nil
}
