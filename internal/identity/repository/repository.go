package repository

import (
	"context"

	"github.com/dkarlss/storefront/internal/identity/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	// Create inserts a user. A taken email returns errors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// TokenRepository persists refresh and password reset tokens by hash; raw
// tokens are never stored.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error

	// GetRefreshToken retrieves a live (unrevoked, unexpired) refresh token
	// by its hash.
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// RevokeRefreshToken marks one token revoked.
	RevokeRefreshToken(ctx context.Context, tokenHash string) error

	// RevokeUserTokens revokes every live refresh token of a user.
	RevokeUserTokens(ctx context.Context, userID string) error

	SaveResetToken(ctx context.Context, token *domain.PasswordResetToken) error

	// GetResetToken retrieves a live (unused, unexpired) reset token by hash.
	GetResetToken(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error)

	// MarkResetTokenUsed consumes a reset token.
	MarkResetTokenUsed(ctx context.Context, tokenHash string) error
}
