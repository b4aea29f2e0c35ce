package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dkarlss/storefront/internal/cart/domain"
	"github.com/dkarlss/storefront/internal/cart/event"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
	pkgkafka "github.com/dkarlss/storefront/pkg/kafka"
)

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestService(repo *mockCartRepository) *CartService {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	// Publishing to an unreachable broker fails and is logged, never surfaced.
	producer := event.NewProducer(pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:1"}), log), log)
	return NewCartService(repo, producer, log, "usd")
}

func cartWithLines(userID string, lines ...domain.Line) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		UserID:    userID,
		Lines:     lines,
		Currency:  "usd",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestGetCart_EmptyWhenMissing(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Get", ctx, "u1").Return(nil, apperrors.NotFound("cart", "u1"))

	snap, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", snap.UserID)
	assert.Empty(t, snap.Lines)
	assert.Zero(t, snap.TotalAmount)
	assert.Zero(t, snap.TotalItems)

	repo.AssertExpectations(t)
}

func TestAddLine_NewLine(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Get", ctx, "u1").Return(nil, apperrors.NotFound("cart", "u1"))
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.AddLine(ctx, "u1", AddLineInput{
		ProductID: "p1", Name: "Shirt", Size: "M", Color: "blue", UnitPrice: 1999,
	})
	require.NoError(t, err)

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "p1-M-blue", snap.Lines[0].VariantKey())
	assert.Equal(t, 1, snap.Lines[0].Quantity)
	assert.Equal(t, 1, snap.TotalItems)
	assert.Equal(t, int64(1999), snap.TotalAmount)

	repo.AssertExpectations(t)
}

func TestAddLine_MergesSameVariant(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := cartWithLines("u1",
		domain.Line{ProductID: "p1", Name: "Shirt", Size: "M", Color: "blue", UnitPrice: 1999, Quantity: 1},
	)
	repo.On("Get", ctx, "u1").Return(existing, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.AddLine(ctx, "u1", AddLineInput{
		ProductID: "p1", Name: "Shirt", Size: "M", Color: "blue", UnitPrice: 1999,
	})
	require.NoError(t, err)

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 2, snap.Lines[0].Quantity)
	assert.Equal(t, int64(3998), snap.TotalAmount)
}

func TestAddLine_DistinctVariantsStaySeparate(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := cartWithLines("u1",
		domain.Line{ProductID: "p1", Size: "M", Color: "blue", UnitPrice: 1999, Quantity: 1},
	)
	repo.On("Get", ctx, "u1").Return(existing, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.AddLine(ctx, "u1", AddLineInput{
		ProductID: "p1", Name: "Shirt", Size: "L", Color: "blue", UnitPrice: 1999,
	})
	require.NoError(t, err)

	require.Len(t, snap.Lines, 2)
	assert.Equal(t, "p1-M-blue", snap.Lines[0].VariantKey())
	assert.Equal(t, "p1-L-blue", snap.Lines[1].VariantKey())
}

func TestAddLine_NegativePriceRejected(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	_, err := svc.AddLine(context.Background(), "u1", AddLineInput{ProductID: "p1", UnitPrice: -1})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddLine_ZeroPriceRejected(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)

	_, err := svc.AddLine(context.Background(), "u1", AddLineInput{ProductID: "p1", Name: "Shirt", UnitPrice: 0})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRemoveLine_Present(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := cartWithLines("u1",
		domain.Line{ProductID: "p1", Size: "M", Color: "blue", UnitPrice: 1000, Quantity: 2},
		domain.Line{ProductID: "p2", UnitPrice: 500, Quantity: 1},
	)
	repo.On("Get", ctx, "u1").Return(existing, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.RemoveLine(ctx, "u1", "p1-M-blue")
	require.NoError(t, err)

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "p2--", snap.Lines[0].VariantKey())
	assert.Equal(t, int64(500), snap.TotalAmount)
}

func TestRemoveLine_AbsentIsNoop(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := cartWithLines("u1",
		domain.Line{ProductID: "p1", UnitPrice: 1000, Quantity: 1},
	)
	repo.On("Get", ctx, "u1").Return(existing, nil)

	snap, err := svc.RemoveLine(ctx, "u1", "missing--")
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 1)

	// No save happens for a no-op.
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSetQuantity_Sets(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := cartWithLines("u1",
		domain.Line{ProductID: "p1", UnitPrice: 1000, Quantity: 1},
	)
	repo.On("Get", ctx, "u1").Return(existing, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.SetQuantity(ctx, "u1", "p1--", 5)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Lines[0].Quantity)
	assert.Equal(t, int64(5000), snap.TotalAmount)
	assert.Equal(t, 5, snap.TotalItems)
}

func TestSetQuantity_ZeroRemoves(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := cartWithLines("u1",
		domain.Line{ProductID: "p1", UnitPrice: 1000, Quantity: 3},
	)
	repo.On("Get", ctx, "u1").Return(existing, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.SetQuantity(ctx, "u1", "p1--", 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
	assert.Zero(t, snap.TotalAmount)
}

func TestSetQuantity_NegativeRemoves(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	existing := cartWithLines("u1",
		domain.Line{ProductID: "p1", UnitPrice: 1000, Quantity: 3},
	)
	repo.On("Get", ctx, "u1").Return(existing, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.SetQuantity(ctx, "u1", "p1--", -2)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
}

func TestClear(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Delete", ctx, "u1").Return(nil)

	require.NoError(t, svc.Clear(ctx, "u1"))
	repo.AssertExpectations(t)
}

func TestClear_RepoFailure(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Delete", ctx, "u1").Return(errors.New("redis down"))

	require.Error(t, svc.Clear(ctx, "u1"))
}

func TestTotals_AlwaysDerived(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newTestService(repo)
	ctx := context.Background()

	repo.On("Get", ctx, "u1").Return(nil, apperrors.NotFound("cart", "u1")).Once()
	repo.On("Save", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	snap, err := svc.AddLine(ctx, "u1", AddLineInput{ProductID: "p1", Name: "A", UnitPrice: 1250})
	require.NoError(t, err)

	current := cartWithLines("u1", snap.Lines...)
	repo.On("Get", ctx, "u1").Return(current, nil)

	snap, err = svc.SetQuantity(ctx, "u1", "p1--", 4)
	require.NoError(t, err)

	var wantAmount int64
	var wantItems int
	for _, l := range snap.Lines {
		wantAmount += l.UnitPrice * int64(l.Quantity)
		wantItems += l.Quantity
	}
	assert.Equal(t, wantAmount, snap.TotalAmount)
	assert.Equal(t, wantItems, snap.TotalItems)
}
