package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/repository"
)

var _ repository.TokenRepository = (*DB)(nil)

// CreateToken records an issued session token.
func (db *DB) CreateToken(ctx context.Context, t *model.AuthToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO auth_tokens (id, user_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		t.ID, t.UserID, t.CreatedAt, t.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting token for user %s: %w", t.UserID, err)
	}
	return nil
}

// GetToken loads a token row. Expiry is not checked here.
func (db *DB) GetToken(ctx context.Context, id string) (*model.AuthToken, error) {
	var t model.AuthToken

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM auth_tokens WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("token", id)
		}
		return nil, fmt.Errorf("sqlite: getting token %s: %w", id, err)
	}

	return &t, nil
}

// DeleteToken revokes a token. Deleting an unknown ID is not an error.
func (db *DB) DeleteToken(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM auth_tokens WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting token %s: %w", id, err)
	}
	return nil
}

// DeleteExpiredTokens removes rows whose expiry is before now and reports
// how many went.
func (db *DB) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expires_at < ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging expired tokens: %w", err)
	}
	return result.RowsAffected()
}
