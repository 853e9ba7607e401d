// Package service holds the business logic. This file covers authentication.
//
// AuthService is the identity store. It sits between the HTTP handlers and
// the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)  ↘ TokenRepository (jti rows)
//
// KEY RESPONSIBILITIES:
//   - Register and log in with email + password
//   - Issue session tokens and persist their IDs so logout can revoke them
//   - Restore an identity from a token on later requests
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/auth"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/repository"
)

// minPasswordLen is the shortest password Register accepts.
const minPasswordLen = 6

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository   → identities and credential hashes
//   - sessions   repository.TokenRepository  → issued token IDs
//   - tokens     *auth.TokenService          → sign/validate JWTs
//   - passwords  *auth.PasswordService       → bcrypt hashing
//   - logger     *slog.Logger                → structured logging
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.TokenRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.TokenRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations.
// It bundles the profile and the issued JWT together so the caller
// (the HTTP handler) can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.UserProfile
	Token *auth.IssuedToken
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new identity and signs it in.
//
// VALIDATION:
//   - name must not be blank
//   - email must contain '@'
//   - password must be 6+ characters and no more than 72 bytes
//
// A second registration for the same email returns a DuplicateIdentity
// conflict and leaves the existing account untouched.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len([]rune(password)) < minPasswordLen {
		return nil, apperror.ValidationFailed("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	profile := &model.UserProfile{Email: email, Name: name}
	if err := s.users.Create(ctx, profile, hash); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Info("duplicate registration rejected", slog.String("email", email))
			return nil, apperror.DuplicateIdentity(email)
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", profile.ID),
		slog.String("email", profile.Email),
	)

	return s.startSession(ctx, profile)
}

// Login verifies the credential for email and signs the user in.
//
// Unknown emails and wrong passwords produce the same InvalidCredentials
// error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	cred, err := s.users.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed", slog.String("email", email), slog.String("reason", "unknown email"))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: loading credential for %s: %w", email, err)
	}

	if err := s.passwords.Verify(cred.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", slog.String("email", email), slog.String("reason", "wrong password"))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying credential for %s: %w", email, err)
	}

	if err := s.users.TouchLastLogin(ctx, cred.UserID); err != nil {
		return nil, fmt.Errorf("service/auth: updating last login for %s: %w", cred.UserID, err)
	}

	profile, err := s.users.GetByID(ctx, cred.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", cred.UserID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", profile.ID))

	return s.startSession(ctx, profile)
}

// startSession issues a token for profile and records its ID.
func (s *AuthService) startSession(ctx context.Context, profile *model.UserProfile) (*AuthResult, error) {
	issued, err := s.tokens.Issue(profile.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", profile.ID, err)
	}

	err = s.sessions.CreateToken(ctx, &model.AuthToken{
		ID:        issued.ID,
		UserID:    profile.ID,
		ExpiresAt: issued.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: recording token for user %s: %w", profile.ID, err)
	}

	return &AuthResult{User: profile, Token: issued}, nil
}

// GetSession restores the identity behind token.
//
// Returns (nil, nil) when there is no usable session: an empty, malformed,
// expired or revoked token, or one whose user no longer exists. Only
// infrastructure failures come back as errors.
func (s *AuthService) GetSession(ctx context.Context, token string) (*model.UserProfile, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("rejected session token", slog.String("error", err.Error()))
		return nil, nil
	}

	row, err := s.sessions.GetToken(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: loading token %s: %w", claims.TokenID, err)
	}
	if row.UserID != claims.UserID {
		s.logger.Warn("token subject mismatch", slog.String("tokenID", claims.TokenID))
		return nil, nil
	}

	profile, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", claims.UserID, err)
	}

	return profile, nil
}

// Logout revokes token. Calling it with an unknown, expired or garbage token
// is not an error, so logging out twice is harmless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		// Expired or forged: nothing usable to revoke.
		return nil
	}

	if err := s.sessions.DeleteToken(ctx, claims.TokenID); err != nil {
		return fmt.Errorf("service/auth: revoking token %s: %w", claims.TokenID, err)
	}

	s.logger.Info("user logged out", slog.String("userID", claims.UserID))
	return nil
}
