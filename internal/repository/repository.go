// Package repository declares the storage contracts the services depend on.
// Concrete backends live in the sqlite, redis and memory subpackages.
package repository

import (
	"context"

	"github.com/sakif/mentor/internal/model"
)

// UserRepository stores identities and their credentials.
type UserRepository interface {
	// Create inserts profile and credential together. The email must be
	// unique; a clash is reported as apperror.ErrConflict.
	Create(ctx context.Context, profile *model.UserProfile, passwordHash string) error
	GetByID(ctx context.Context, id string) (*model.UserProfile, error)
	// GetCredentialByEmail returns apperror.ErrNotFound for unknown emails.
	GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// TokenRepository tracks issued session tokens so they can be revoked.
type TokenRepository interface {
	CreateToken(ctx context.Context, token *model.AuthToken) error
	// GetToken returns apperror.ErrNotFound for unknown or deleted tokens.
	GetToken(ctx context.Context, id string) (*model.AuthToken, error)
	DeleteToken(ctx context.Context, id string) error
}

// KVStore is the raw key/value medium behind the scoped gateway.
//
// Get returns (nil, false, nil) for a missing key. Values are opaque bytes;
// encoding is the caller's concern.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}
