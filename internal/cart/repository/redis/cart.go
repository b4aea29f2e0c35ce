package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkarlss/storefront/internal/cart/domain"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository stores carts as JSON snapshots in Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewCartRepository creates a Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration, log *slog.Logger) *CartRepository {
	return &CartRepository{client: client, ttl: ttl, log: log}
}

// Get retrieves a user's cart. A snapshot that no longer decodes is deleted
// and logged, and the cart is reported absent so the caller starts empty.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		r.log.WarnContext(ctx, "discarding malformed cart snapshot",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			r.log.ErrorContext(ctx, "failed to delete malformed cart snapshot",
				slog.String("user_id", userID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, apperrors.NotFound("cart", userID)
	}

	return &cart, nil
}

// Save overwrites the user's cart with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+cart.UserID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes the user's cart.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, keyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
