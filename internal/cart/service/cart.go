package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkarlss/storefront/internal/cart/domain"
	"github.com/dkarlss/storefront/internal/cart/event"
	"github.com/dkarlss/storefront/internal/cart/repository"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// AddLineInput holds the product details for adding a line to the cart.
// Quantity is always 1 per call; repeated adds of the same variant merge.
type AddLineInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required,min=1,max=500"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	UnitPrice int64  `json:"unit_price" validate:"gt=0"`
	ImageURL  string `json:"image_url"`
}

// CartService implements cart operations over the persisted cart.
type CartService struct {
	repo     repository.CartRepository
	producer *event.Producer
	log      *slog.Logger
	currency string
}

// NewCartService creates the cart service.
func NewCartService(repo repository.CartRepository, producer *event.Producer, log *slog.Logger, currency string) *CartService {
	return &CartService{repo: repo, producer: producer, log: log, currency: currency}
}

// GetCart returns a snapshot of the user's cart, empty when none is stored.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	return cart.Snapshot(), nil
}

// AddLine adds one unit of the given variant. If a line with the same variant
// key exists its quantity is incremented by 1; otherwise a new line with
// quantity 1 is appended, preserving insertion order.
func (s *CartService) AddLine(ctx context.Context, userID string, input AddLineInput) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.UnitPrice <= 0 {
		return nil, apperrors.InvalidInput("unit price must be greater than zero")
	}

	cart, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := domain.VariantKey(input.ProductID, input.Size, input.Color)
	if i := cart.FindLine(key); i >= 0 {
		cart.Lines[i].Quantity++
	} else {
		cart.Lines = append(cart.Lines, domain.Line{
			ProductID: input.ProductID,
			Name:      input.Name,
			Size:      input.Size,
			Color:     input.Color,
			UnitPrice: input.UnitPrice,
			Quantity:  1,
			ImageURL:  input.ImageURL,
		})
	}

	snap, err := s.persist(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "cart line added",
		slog.String("user_id", userID),
		slog.String("variant_key", key),
		slog.Int("total_items", snap.TotalItems),
	)

	return snap, nil
}

// RemoveLine deletes the line with the given variant key. Removing an absent
// line is a no-op, not an error.
func (s *CartService) RemoveLine(ctx context.Context, userID, variantKey string) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if variantKey == "" {
		return nil, apperrors.InvalidInput("variant key is required")
	}

	cart, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := cart.FindLine(variantKey)
	if i < 0 {
		return cart.Snapshot(), nil
	}
	cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)

	snap, err := s.persist(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "cart line removed",
		slog.String("user_id", userID),
		slog.String("variant_key", variantKey),
	)

	return snap, nil
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. Setting quantity on an absent line is a no-op.
func (s *CartService) SetQuantity(ctx context.Context, userID, variantKey string, quantity int) (*domain.Snapshot, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if variantKey == "" {
		return nil, apperrors.InvalidInput("variant key is required")
	}

	if quantity <= 0 {
		return s.RemoveLine(ctx, userID, variantKey)
	}

	cart, err := s.loadOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	i := cart.FindLine(variantKey)
	if i < 0 {
		return cart.Snapshot(), nil
	}
	cart.Lines[i].Quantity = quantity

	snap, err := s.persist(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "cart quantity set",
		slog.String("user_id", userID),
		slog.String("variant_key", variantKey),
		slog.Int("quantity", quantity),
	)

	return snap, nil
}

// Clear removes the persisted cart entirely.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, userID); err != nil {
		s.log.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.log.InfoContext(ctx, "cart cleared", slog.String("user_id", userID))
	return nil
}

// persist saves the cart and publishes cart.updated. Publish failures are
// logged and do not fail the mutation.
func (s *CartService) persist(ctx context.Context, cart *domain.Cart) (*domain.Snapshot, error) {
	cart.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	snap := cart.Snapshot()
	if err := s.producer.PublishCartUpdated(ctx, snap); err != nil {
		s.log.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}

	return snap, nil
}

func (s *CartService) loadOrEmpty(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			now := time.Now().UTC()
			return &domain.Cart{
				UserID:    userID,
				Lines:     []domain.Line{},
				Currency:  s.currency,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}
