package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkarlss/storefront/internal/identity/auth"
	"github.com/dkarlss/storefront/internal/identity/domain"
	"github.com/dkarlss/storefront/internal/identity/event"
	"github.com/dkarlss/storefront/internal/identity/repository"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = time.Hour
)

// Auth error codes. The set is closed: every authentication failure maps to
// one of these with a fixed user-facing message, so raw provider or database
// detail never leaks.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmailInUse         = "AUTH_EMAIL_IN_USE"
	CodeWeakPassword       = "AUTH_WEAK_PASSWORD"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeTooManyRequests    = "AUTH_TOO_MANY_REQUESTS"
)

var authMessages = map[string]string{
	CodeInvalidCredentials: "email or password is incorrect",
	CodeEmailInUse:         "an account with this email already exists",
	CodeWeakPassword:       fmt.Sprintf("password must be at least %d characters", minPasswordLength),
	CodeUserNotFound:       "no account exists for this email",
	CodeTooManyRequests:    "too many attempts, please try again later",
}

// AuthError builds the fixed-message error for an auth code.
func AuthError(code string) error {
	return apperrors.Auth(code, authMessages[code])
}

// IdentityService handles signup, signin, token refresh, and password reset.
type IdentityService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	manager  *auth.TokenManager
	producer *event.Producer
	log      *slog.Logger
}

// NewIdentityService creates the identity service.
func NewIdentityService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	manager *auth.TokenManager,
	producer *event.Producer,
	log *slog.Logger,
) *IdentityService {
	return &IdentityService{
		users:    users,
		tokens:   tokens,
		manager:  manager,
		producer: producer,
		log:      log,
	}
}

// SignUpInput is the payload for account creation.
type SignUpInput struct {
	Email    string
	Password string
	FullName string
}

// SignUp creates an account and signs the user in.
func (s *IdentityService) SignUp(ctx context.Context, input SignUpInput) (*domain.User, *domain.TokenPair, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, nil, AuthError(CodeWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(input.FullName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, nil, AuthError(CodeEmailInUse)
		}
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.producer.PublishUserRegistered(ctx, user.ID, user.Email, user.FullName); err != nil {
		s.log.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
	}

	s.log.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return user, pair, nil
}

// SignIn verifies credentials and issues a token pair. Unknown email and bad
// password are indistinguishable to the caller.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, AuthError(CodeInvalidCredentials)
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, AuthError(CodeInvalidCredentials)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.manager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, AuthError(CodeInvalidCredentials)
	}

	stored, err := s.tokens.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, AuthError(CodeInvalidCredentials)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, AuthError(CodeInvalidCredentials)
	}

	if err := s.tokens.RevokeRefreshToken(ctx, stored.TokenHash); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// SignOut revokes the presented refresh token. Idempotent.
func (s *IdentityService) SignOut(ctx context.Context, refreshToken string) error {
	return s.tokens.RevokeRefreshToken(ctx, hashToken(refreshToken))
}

// Profile retrieves the account for an authenticated user.
func (s *IdentityService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// VerifyAccessToken validates an access token, for the HTTP auth middleware.
func (s *IdentityService) VerifyAccessToken(token string) (*auth.AccessClaims, error) {
	return s.manager.ValidateAccessToken(token)
}

// RequestPasswordReset issues a one-hour reset token for the account. The
// raw token goes out through the mail pipeline; only its hash is stored.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", AuthError(CodeUserNotFound)
		}
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := time.Now().UTC()
	err = s.tokens.SaveResetToken(ctx, &domain.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "password reset requested", slog.String("user_id", user.ID))
	return token, nil
}

// ResetPassword consumes a reset token and replaces the password. All live
// sessions of the user are revoked.
func (s *IdentityService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return AuthError(CodeWeakPassword)
	}

	stored, err := s.tokens.GetResetToken(ctx, hashToken(token))
	if err != nil {
		return AuthError(CodeInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, stored.UserID, string(hash)); err != nil {
		return err
	}
	if err := s.tokens.MarkResetTokenUsed(ctx, stored.TokenHash); err != nil {
		return err
	}
	if err := s.tokens.RevokeUserTokens(ctx, stored.UserID); err != nil {
		s.log.ErrorContext(ctx, "failed to revoke sessions after password reset",
			slog.String("user_id", stored.UserID), slog.String("error", err.Error()))
	}

	s.log.InfoContext(ctx, "password reset completed", slog.String("user_id", stored.UserID))
	return nil
}

func (s *IdentityService) issueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, err := s.manager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.manager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tokens.SaveRefreshToken(ctx, &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(s.manager.RefreshTTL()),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
