package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkarlss/storefront/internal/cart/domain"
	pkgkafka "github.com/dkarlss/storefront/pkg/kafka"
)

// Kafka topics for cart domain events.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
)

const (
	entityTypeCart = "cart"
	source         = "storefront"
)

// CartUpdatedPayload is the body of a cart.updated event.
type CartUpdatedPayload struct {
	UserID      string        `json:"user_id"`
	Lines       []domain.Line `json:"lines"`
	TotalItems  int           `json:"total_items"`
	TotalAmount int64         `json:"total_amount"`
	Currency    string        `json:"currency"`
}

// CartClearedPayload is the body of a cart.cleared event.
type CartClearedPayload struct {
	UserID string `json:"user_id"`
}

// Producer publishes cart domain events.
type Producer struct {
	kafka *pkgkafka.Producer
	log   *slog.Logger
}

// NewProducer creates a cart event producer.
func NewProducer(kafka *pkgkafka.Producer, log *slog.Logger) *Producer {
	return &Producer{kafka: kafka, log: log}
}

// PublishCartUpdated publishes a cart.updated event from the given snapshot.
func (p *Producer) PublishCartUpdated(ctx context.Context, snap *domain.Snapshot) error {
	payload := CartUpdatedPayload{
		UserID:      snap.UserID,
		Lines:       snap.Lines,
		TotalItems:  snap.TotalItems,
		TotalAmount: snap.TotalAmount,
		Currency:    snap.Currency,
	}

	ev, err := pkgkafka.NewEvent(TopicCartUpdated, snap.UserID, entityTypeCart, source, payload)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, ev); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	ev, err := pkgkafka.NewEvent(TopicCartCleared, userID, entityTypeCart, source, CartClearedPayload{UserID: userID})
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, ev); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.log.DebugContext(ctx, "published cart.cleared event", slog.String("user_id", userID))
	return nil
}
