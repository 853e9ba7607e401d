package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/mentor/internal/repository"
)

var _ repository.KVStore = (*DB)(nil)

// Get reads a raw value from user_data. A missing key is (nil, false, nil).
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM user_data WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite: reading %s: %w", key, err)
	}

	return value, true, nil
}

// Set writes value under key, replacing whatever was there.
func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_data (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing %s: %w", key, err)
	}
	return nil
}
