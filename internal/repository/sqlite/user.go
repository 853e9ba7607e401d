package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new identity.
//
// The ID and timestamps are generated here and written back into profile
// (pointer receiver). The email column is UNIQUE, so a second registration
// with the same address fails inside SQLite and comes back as a conflict.
func (db *DB) Create(ctx context.Context, profile *model.UserProfile, passwordHash string) error {
	now := time.Now().UTC()
	profile.ID = xid.New().String()
	profile.CreatedAt = now
	profile.LastLogin = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.Email,
		profile.Name,
		passwordHash,
		profile.CreatedAt,
		profile.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateIdentity(profile.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", profile.Email, err)
	}

	return nil
}

// GetByID retrieves a profile by its internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var u model.UserProfile

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, last_login
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// GetCredentialByEmail looks up the hash for a login attempt.
// The caller is expected to have normalised the email already.
func (db *DB) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var c model.Credential

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`,
		email,
	).Scan(&c.UserID, &c.Email, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting credential for %s: %w", email, err)
	}

	return &c, nil
}

// TouchLastLogin stamps the current time on a successful login.
func (db *DB) TouchLastLogin(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching last_login for %s: %w", id, err)
	}

	// RowsAffected tells us whether the WHERE clause matched anything.
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}
