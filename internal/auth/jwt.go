// Package auth provides credential hashing and session tokens for the mentor API.
//
// SESSION FLOW OVERVIEW:
//  1. User registers or logs in with email + password
//  2. The identity store verifies the credential and calls Issue
//  3. The token ID ("jti") is persisted with its expiry; the JWT goes into an
//     HttpOnly cookie
//  4. On later requests, middleware validates the JWT here and asks the
//     identity store whether the jti row still exists
//  5. Logout deletes the row, so the token stops working immediately even
//     though its signature and expiry are still fine
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"userID","jti":"tokenID","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "mentor"

// DefaultTokenTTL is how long a session survives without logging in again.
const DefaultTokenTTL = 720 * time.Hour

// ErrTokenExpired is returned by Validate for tokens past their expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// The secret should be at least 32 bytes of random data in production.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL reports the lifetime given to issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// IssuedToken is a signed token plus the metadata the caller must persist.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Claims is what Validate extracts from a token.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// Issue creates and signs a new session token for userID.
func (s *TokenService) Issue(userID string) (*IssuedToken, error) {
	return s.IssueWithDuration(userID, s.ttl)
}

// IssueWithDuration creates a token with a custom lifetime.
// Used in tests to produce already-expired tokens.
func (s *TokenService) IssueWithDuration(userID string, d time.Duration) (*IssuedToken, error) {
	if userID == "" {
		return nil, errors.New("auth: cannot issue a token without a subject")
	}

	now := time.Now()
	id := uuid.NewString()
	expires := now.Add(d)

	c := jwt.RegisteredClaims{
		ID:        id,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return &IssuedToken{Token: signed, ID: id, ExpiresAt: expires}, nil
}

// Validate parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Validate says nothing about revocation; that needs the token store.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	rc, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if rc.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if rc.ID == "" {
		return nil, fmt.Errorf("auth: token has no id")
	}

	return &Claims{
		UserID:    rc.Subject,
		TokenID:   rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
