// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects storage, services,
// handlers, middleware and routes, and it owns every long-lived resource
// (database, Redis client, per-user workspaces) so it can close them on
// shutdown.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB ─────────────→ AuthService (users + token rows)
//	  KV backend → Gateway ──→ Workspaces (tracker, sessions, timer)
//	  services ──────────────→ handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in
// one place instead of being scattered across the codebase.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/mentor/internal/auth"
	"github.com/sakif/mentor/internal/config"
	"github.com/sakif/mentor/internal/handler"
	"github.com/sakif/mentor/internal/middleware"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/repository"
	"github.com/sakif/mentor/internal/repository/memory"
	redisRepo "github.com/sakif/mentor/internal/repository/redis"
	sqliteRepo "github.com/sakif/mentor/internal/repository/sqlite"
	"github.com/sakif/mentor/internal/service"
	"github.com/sakif/mentor/internal/store"
	"github.com/sakif/mentor/internal/timer"
)

// tokenPurgeInterval is how often expired session rows are removed.
const tokenPurgeInterval = time.Hour

// pinger is implemented by storage backends that can report their health.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection, the optional Redis client and
// the workspaces (each running a timer goroutine). Close releases all of
// them; Start calls it during graceful shutdown.
type Server struct {
	router     *chi.Mux
	config     *config.Config
	logger     *slog.Logger
	db         *sqliteRepo.DB
	kv         repository.KVStore
	redis      *redisRepo.Store
	auth       *service.AuthService
	workspaces *service.Workspaces
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Open SQLite (identities always live there)
//  2. Pick the KV backend for scoped user data
//  3. Build the auth service and the workspace registry
//  4. Wire handlers to routes
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.openKV(); err != nil {
		db.Close() // Clean up DB if the KV backend is unreachable
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s.auth = service.NewAuthService(db, db, tokens, auth.NewPasswordService(cfg.Auth.BcryptCost), logger)
	s.workspaces = service.NewWorkspaces(store.NewGateway(s.kv, logger), service.WorkspaceConfig{
		TimerInterval: cfg.Timer.Interval,
		FocusMinutes:  cfg.Timer.FocusMinutes,
		Awards: map[model.TimerMode]int{
			model.ModeFocus: cfg.Timer.FocusAward,
			model.ModeFree:  cfg.Timer.FreeAward,
			model.ModeBreak: cfg.Timer.BreakAward,
		},
		Alerter: timer.NewCommandAlerter(cfg.Timer.AlertCommand),
	}, logger)

	s.setupRoutes()

	return s, nil
}

// openKV selects the storage backend for per-user data. Open pings Redis,
// so an unreachable server fails startup here.
func (s *Server) openKV() error {
	switch s.config.Storage {
	case config.StorageRedis:
		rs, err := redisRepo.Open(s.config.Redis.URL)
		if err != nil {
			return fmt.Errorf("opening redis: %w", err)
		}
		s.redis = rs
		s.kv = rs
	case config.StorageMemory:
		s.logger.Warn("user data is kept in memory and will be lost on restart")
		s.kv = memory.New()
	default:
		s.kv = s.db
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                      → storage health
// GET    /*                            → presentation shell (when STATIC_DIR is set)
// POST   /auth/register|login|logout   → identity
// GET    /api/me                       → current profile
// GET    /api/stats                    → progression
// GET    /api/sessions                 → chat sessions + active id
// POST   /api/sessions                 → new session
// GET    /api/sessions/active          → active session
// PUT    /api/sessions/active          → switch session
// PUT    /api/sessions/{id}            → replace session
// POST   /api/sessions/{id}/messages   → append message
// GET    /api/timer                    → timer state
// PUT    /api/timer                    → configure timer
// POST   /api/timer/start|stop         → run / pause
// GET    /api/timer/ws                 → timer event stream
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
func (s *Server) setupRoutes() {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", s.handleHealth)

	authHandler := handler.NewAuthHandler(s.auth, s.workspaces, s.config.IsProduction(), s.logger)
	sessionHandler := handler.NewSessionHandler(s.workspaces, s.logger)
	statsHandler := handler.NewStatsHandler(s.workspaces, s.logger)
	timerHandler := handler.NewTimerHandler(s.workspaces, s.logger)

	// === Auth Routes (public) ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API Routes (authenticated) ===
	// RequireAuth resolves the token to a profile; handlers then pick the
	// caller's workspace from it, so one user can never address another's data.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.auth))

		r.Get("/me", authHandler.HandleMe)
		r.Get("/stats", statsHandler.HandleGet)

		r.Get("/sessions", sessionHandler.HandleList)
		r.Post("/sessions", sessionHandler.HandleCreate)
		r.Get("/sessions/active", sessionHandler.HandleGetActive)
		r.Put("/sessions/active", sessionHandler.HandleSelect)
		r.Put("/sessions/{id}", sessionHandler.HandleUpdate)
		r.Post("/sessions/{id}/messages", sessionHandler.HandleAppendMessage)

		r.Get("/timer", timerHandler.HandleGet)
		r.Put("/timer", timerHandler.HandleSet)
		r.Post("/timer/start", timerHandler.HandleStart)
		r.Post("/timer/stop", timerHandler.HandleStop)
		r.Get("/timer/ws", timerHandler.HandleStream)
	})

	// === Static Files ===
	// The shell is a single-page app; everything not matched above is a file.
	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// handleHealth pings every storage backend.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "storage": "ok", "backend": s.config.Storage}
	code := http.StatusOK

	if err := s.db.Ping(ctx); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if p, ok := s.kv.(pinger); ok && s.config.Storage != config.StorageSQLite {
		if err := p.Ping(ctx); err != nil {
			status["storage"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("failed to encode health response", slog.String("error", err.Error()))
	}
}

// purgeExpiredTokens removes dead session rows until ctx is cancelled.
func (s *Server) purgeExpiredTokens(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.db.DeleteExpiredTokens(ctx, time.Now().UTC())
			if err != nil {
				s.logger.Error("purging expired tokens failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.logger.Info("purged expired tokens", slog.Int64("count", n))
			}
		}
	}
}

// Close stops every workspace and releases storage. Safe to call once
// after the HTTP server has stopped.
func (s *Server) Close() error {
	if s.workspaces != nil {
		s.workspaces.Close()
	}

	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the timers and close storage (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	// WriteTimeout is left at zero: the timer websocket is long-lived and
	// manages its own write deadlines.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go s.purgeExpiredTokens(purgeCtx, tokenPurgeInterval)

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("storage", s.config.Storage),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
