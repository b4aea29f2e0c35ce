package repository

import (
	"context"

	"github.com/dkarlss/storefront/internal/checkout/domain"
)

// SessionRepository persists checkout sessions.
type SessionRepository interface {
	// Get retrieves a session by ID. Returns errors.ErrNotFound when absent
	// or expired out of the store.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Save overwrites the session.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes the session.
	Delete(ctx context.Context, sessionID string) error
}
