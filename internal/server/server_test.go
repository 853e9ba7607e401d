package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mentor/internal/config"
	"github.com/sakif/mentor/internal/model"
)

func testConfig(storage string) *config.Config {
	return &config.Config{
		Env:      "development",
		Port:     0,
		LogLevel: "error",
		Storage:  storage,
		DBPath:   ":memory:",
		Auth: config.AuthConfig{
			JWTSecret:  "server-test-secret-0123456789abcdef",
			SessionTTL: time.Hour,
			BcryptCost: 4,
		},
		Timer: config.TimerConfig{
			Interval:     time.Hour,
			FocusMinutes: 25,
			FocusAward:   50,
			FreeAward:    20,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func post(t *testing.T, h http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(config.StorageMemory))

	rec := get(s.Handler(), "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, config.StorageMemory, body["backend"])
}

// TestEndToEnd runs the same flow against every storage backend.
func TestEndToEnd(t *testing.T) {
	backends := map[string]func(t *testing.T) *config.Config{
		config.StorageSQLite: func(t *testing.T) *config.Config { return testConfig(config.StorageSQLite) },
		config.StorageMemory: func(t *testing.T) *config.Config { return testConfig(config.StorageMemory) },
		config.StorageRedis: func(t *testing.T) *config.Config {
			mr := miniredis.RunT(t)
			cfg := testConfig(config.StorageRedis)
			cfg.Redis.URL = "redis://" + mr.Addr() + "/0"
			return cfg
		},
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			h := newTestServer(t, mk(t)).Handler()

			rec := post(t, h, "/auth/register", map[string]string{
				"name": "Ada", "email": "ada@example.com", "password": "secret1", "confirmPassword": "secret1",
			}, "")
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var reg struct {
				Token string `json:"token"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))

			rec = get(h, "/api/sessions/active", reg.Token)
			require.Equal(t, http.StatusOK, rec.Code)
			var active model.ChatSession
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))

			rec = post(t, h, "/api/sessions/"+active.ID+"/messages", map[string]string{
				"role": "model", "text": "Good start. <<<POINTS:40:first step>>>",
			}, reg.Token)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			rec = get(h, "/api/stats", reg.Token)
			require.Equal(t, http.StatusOK, rec.Code)
			var stats model.UserStats
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
			assert.Equal(t, 40, stats.Points)

			// A fresh login sees the persisted record.
			rec = post(t, h, "/auth/logout", map[string]string{}, reg.Token)
			require.Equal(t, http.StatusOK, rec.Code)
			rec = post(t, h, "/auth/login", map[string]string{"email": "ada@example.com", "password": "secret1"}, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var login struct {
				Token string `json:"token"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

			rec = get(h, "/api/stats", login.Token)
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
			assert.Equal(t, 40, stats.Points)
		})
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(config.StorageRedis)
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"
	mr.Close()

	_, err := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	assert.Error(t, err)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>mentor</h1>"), 0o644))

	cfg := testConfig(config.StorageMemory)
	cfg.StaticDir = dir
	h := newTestServer(t, cfg).Handler()

	rec := get(h, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mentor")

	// API routes still win over the file server.
	assert.Equal(t, http.StatusUnauthorized, get(h, "/api/me", "").Code)
}

func TestPurgeExpiredTokens_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, testConfig(config.StorageMemory))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.purgeExpiredTokens(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge loop did not stop after cancel")
	}
}
