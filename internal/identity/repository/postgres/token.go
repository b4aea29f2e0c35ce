package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dkarlss/storefront/internal/identity/domain"
	"github.com/dkarlss/storefront/pkg/database"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

// TokenRepository implements refresh and reset token persistence on
// PostgreSQL.
type TokenRepository struct {
	pool database.DBTX
}

// NewTokenRepository creates a PostgreSQL-backed token repository.
func NewTokenRepository(pool database.DBTX) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// SaveRefreshToken stores a refresh token hash.
func (r *TokenRepository) SaveRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves a live refresh token by hash.
func (r *TokenRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()`,
		tokenHash,
	)

	var t domain.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("refresh token", "given hash")
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}

// RevokeRefreshToken marks one refresh token revoked.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $1
		WHERE token_hash = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserTokens revokes every live refresh token of a user.
func (r *TokenRepository) RevokeUserTokens(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// SaveResetToken stores a password reset token hash.
func (r *TokenRepository) SaveResetToken(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

// GetResetToken retrieves a live reset token by hash.
func (r *TokenRepository) GetResetToken(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()`,
		tokenHash,
	)

	var t domain.PasswordResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("reset token", "given hash")
		}
		return nil, fmt.Errorf("scan reset token: %w", err)
	}
	return &t, nil
}

// MarkResetTokenUsed consumes a reset token so it cannot be replayed.
func (r *TokenRepository) MarkResetTokenUsed(ctx context.Context, tokenHash string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE password_reset_tokens SET used_at = $1
		WHERE token_hash = $2 AND used_at IS NULL`,
		time.Now().UTC(), tokenHash,
	)
	if err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("reset token", "given hash")
	}
	return nil
}
