package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mentor/internal/auth"
	"github.com/sakif/mentor/internal/repository/memory"
	"github.com/sakif/mentor/internal/repository/sqlite"
	"github.com/sakif/mentor/internal/service"
	"github.com/sakif/mentor/internal/store"
)

// testAPI wires the real services over in-memory storage: SQLite ":memory:"
// for identities and the memory KV store for per-user data.
type testAPI struct {
	router     http.Handler
	workspaces *service.Workspaces
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789abcdef", time.Hour)
	require.NoError(t, err)

	authSvc := service.NewAuthService(db, db, tokens, auth.NewPasswordServiceForTest(), logger)
	gw := store.NewGateway(memory.New(), logger)
	workspaces := service.NewWorkspaces(gw, service.WorkspaceConfig{TimerInterval: time.Hour}, logger)
	t.Cleanup(workspaces.Close)

	authH := NewAuthHandler(authSvc, workspaces, false, logger)
	sessionH := NewSessionHandler(workspaces, logger)
	statsH := NewStatsHandler(workspaces, logger)
	timerH := NewTimerHandler(workspaces, logger)

	r := chi.NewRouter()
	r.Post("/auth/register", authH.HandleRegister)
	r.Post("/auth/login", authH.HandleLogin)
	r.Post("/auth/logout", authH.HandleLogout)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authSvc))
		r.Get("/api/me", authH.HandleMe)
		r.Get("/api/stats", statsH.HandleGet)
		r.Get("/api/sessions", sessionH.HandleList)
		r.Post("/api/sessions", sessionH.HandleCreate)
		r.Get("/api/sessions/active", sessionH.HandleGetActive)
		r.Put("/api/sessions/active", sessionH.HandleSelect)
		r.Put("/api/sessions/{id}", sessionH.HandleUpdate)
		r.Post("/api/sessions/{id}/messages", sessionH.HandleAppendMessage)
		r.Get("/api/timer", timerH.HandleGet)
		r.Put("/api/timer", timerH.HandleSet)
		r.Post("/api/timer/start", timerH.HandleStart)
		r.Post("/api/timer/stop", timerH.HandleStop)
		r.Get("/api/timer/ws", timerH.HandleStream)
	})

	return &testAPI{router: r, workspaces: workspaces}
}

// do sends a request with an optional JSON body and bearer token.
func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its token.
func (a *testAPI) register(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", map[string]string{
		"name":            "Tester",
		"email":           email,
		"password":        "secret1",
		"confirmPassword": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res authResponse
	decode(t, rec, &res)
	return res.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}
