package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/dkarlss/storefront/pkg/kafka"
)

// TopicUserRegistered is published once per successful signup.
const TopicUserRegistered = "storefront.user.registered"

const (
	entityTypeUser = "user"
	source         = "storefront"
)

// UserRegisteredPayload is the body of a user.registered event.
type UserRegisteredPayload struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Producer publishes identity domain events.
type Producer struct {
	kafka *pkgkafka.Producer
	log   *slog.Logger
}

// NewProducer creates an identity event producer.
func NewProducer(kafka *pkgkafka.Producer, log *slog.Logger) *Producer {
	return &Producer{kafka: kafka, log: log}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, userID, email, fullName string) error {
	payload := UserRegisteredPayload{UserID: userID, Email: email, FullName: fullName}

	ev, err := pkgkafka.NewEvent(TopicUserRegistered, userID, entityTypeUser, source, payload)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, ev); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.log.DebugContext(ctx, "published user.registered event", slog.String("user_id", userID))
	return nil
}
