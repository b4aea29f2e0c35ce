package repository

import (
	"context"

	"github.com/dkarlss/storefront/internal/cart/domain"
)

// CartRepository persists carts keyed by user ID.
type CartRepository interface {
	// Get retrieves a user's cart. Returns errors.ErrNotFound when no cart
	// exists; a stored cart that cannot be decoded is discarded and treated
	// as absent.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save overwrites the stored cart for the user.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes the stored cart. Deleting an absent cart is not an error.
	Delete(ctx context.Context, userID string) error
}
