// Package store is the scoped persistence gateway: every read and write of
// per-user data goes through here so keys always embed the owner's id.
//
// KEY LAYOUT:
//
//	mentor_data_<userID>_<key>
//
// Two users can never collide because the id sits between fixed separators,
// which is why ids containing "_" are refused outright.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/repository"
)

// KeyPrefix starts every persisted per-user key.
const KeyPrefix = "mentor_data_"

// Well-known keys.
const (
	KeySessions = "sessions"
	KeyStats    = "stats"
)

// Gateway namespaces a KVStore by user id and handles JSON encoding.
type Gateway struct {
	kv     repository.KVStore
	logger *slog.Logger
}

func NewGateway(kv repository.KVStore, logger *slog.Logger) *Gateway {
	return &Gateway{kv: kv, logger: logger}
}

// ScopedKey builds the storage key for userID's key.
func ScopedKey(userID, key string) (string, error) {
	if userID == "" {
		return "", apperror.ValidationFailed("userId", "user id is required")
	}
	if strings.Contains(userID, "_") {
		return "", apperror.ValidationFailed("userId", "user id must not contain '_'")
	}
	if key == "" {
		return "", apperror.ValidationFailed("key", "key is required")
	}
	return KeyPrefix + userID + "_" + key, nil
}

// Load reads userID's value for key into a T.
//
// Load never returns an error. Invalid ids, missing keys, backend failures
// and undecodable payloads all give def; the last two are logged as
// persistence read errors first.
func Load[T any](ctx context.Context, g *Gateway, userID, key string, def T) T {
	full, err := ScopedKey(userID, key)
	if err != nil {
		g.logger.Warn("rejected scoped read", slog.String("key", key), slog.String("error", err.Error()))
		return def
	}

	raw, ok, err := g.kv.Get(ctx, full)
	if err != nil {
		g.logger.Error("persistence read failed",
			slog.String("key", full),
			slog.String("error", apperror.PersistenceRead(full, err).Error()),
		)
		return def
	}
	if !ok {
		return def
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		g.logger.Error("persistence read failed",
			slog.String("key", full),
			slog.String("error", apperror.PersistenceRead(full, err).Error()),
		)
		return def
	}

	return out
}

// Save encodes value as JSON and writes it under userID's key.
// The write happens before Save returns; the last write per key wins.
func (g *Gateway) Save(ctx context.Context, userID, key string, value any) error {
	full, err := ScopedKey(userID, key)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", full, err)
	}

	if err := g.kv.Set(ctx, full, raw); err != nil {
		return fmt.Errorf("store: saving %s: %w", full, err)
	}

	g.logger.Debug("saved", slog.String("key", full), slog.Int("bytes", len(raw)))
	return nil
}
