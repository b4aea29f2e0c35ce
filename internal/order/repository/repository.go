package repository

import (
	"context"

	"github.com/dkarlss/storefront/internal/order/domain"
)

// OrderRepository persists orders. Orders are append-only: rows are inserted
// once and only their status may change afterwards.
type OrderRepository interface {
	// Create inserts an order and its lines atomically. A duplicate payment
	// reference returns errors.ErrAlreadyExists so a retried confirmation
	// cannot record two orders.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByPaymentReference retrieves the order recorded for a payment
	// reference, if any.
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error)

	// ListByOwner returns the owner's orders, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)

	// UpdateStatus moves an order to a new status. The repository enforces
	// the transition graph and returns errors.ErrConflict on a violation.
	UpdateStatus(ctx context.Context, id, status string) error
}

// ReturnRepository persists return requests.
type ReturnRepository interface {
	// Create inserts a return request. An open return for the same order
	// returns errors.ErrAlreadyExists.
	Create(ctx context.Context, ret *domain.ReturnRequest) error

	// GetByID retrieves a return request.
	GetByID(ctx context.Context, id string) (*domain.ReturnRequest, error)

	// ListByOwner returns the owner's return requests, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ReturnRequest, error)

	// UpdateStatus moves a return request through its lifecycle, enforcing
	// the transition graph.
	UpdateStatus(ctx context.Context, id, status string) error
}
