package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/mentor/internal/award"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/store"
	"github.com/sakif/mentor/internal/timer"
)

// WorkspaceConfig tunes the per-user components.
type WorkspaceConfig struct {
	TimerInterval time.Duration
	FocusMinutes  int
	// Awards maps a finished timer mode to the points it earns.
	Awards  map[model.TimerMode]int
	Alerter timer.Alerter
}

// DefaultAwards is what a completed countdown earns per mode.
var DefaultAwards = map[model.TimerMode]int{
	model.ModeFocus: 50,
	model.ModeFree:  20,
	model.ModeBreak: 0,
}

// Workspace is everything one signed-in user works with.
type Workspace struct {
	UserID   string
	Tracker  *Tracker
	Sessions *SessionStore
	Timer    *timer.Timer
	logger   *slog.Logger
}

// MessageResult is what appending a message produced.
type MessageResult struct {
	Session model.ChatSession `json:"session"`
	Award   *award.Award      `json:"award,omitempty"`
	Stats   model.UserStats   `json:"stats"`
}

// AppendMessage stores a chat message.
//
// Model replies go through the award bridge first: any points tag is removed
// from the stored text and the first valid one is credited to the tracker.
// A reply that was nothing but a tag awards points without adding a message.
func (ws *Workspace) AppendMessage(ctx context.Context, sessionID string, role model.Role, text string) (*MessageResult, error) {
	var granted *award.Award

	if role == model.RoleModel {
		clean, a, ok := award.Extract(text)
		if ok {
			granted = &a
		}
		text = clean

		if text == "" && granted != nil {
			sess, err := ws.Sessions.Get(sessionID)
			if err != nil {
				return nil, err
			}
			stats := ws.Tracker.AddPoints(ctx, granted.Amount, granted.Reason)
			return &MessageResult{Session: sess, Award: granted, Stats: stats}, nil
		}
	}

	sess, err := ws.Sessions.AppendMessage(ctx, sessionID, role, text)
	if err != nil {
		return nil, err
	}

	var stats model.UserStats
	if granted != nil {
		stats = ws.Tracker.AddPoints(ctx, granted.Amount, granted.Reason)
	} else {
		stats = ws.Tracker.Stats()
	}

	return &MessageResult{Session: sess, Award: granted, Stats: stats}, nil
}

// Workspaces keeps one Workspace per active user id.
type Workspaces struct {
	mu     sync.Mutex
	items  map[string]*Workspace
	builds singleflight.Group
	gw     *store.Gateway
	cfg    WorkspaceConfig
	logger *slog.Logger
}

func NewWorkspaces(gw *store.Gateway, cfg WorkspaceConfig, logger *slog.Logger) *Workspaces {
	if cfg.Awards == nil {
		cfg.Awards = DefaultAwards
	}
	return &Workspaces{
		items:  make(map[string]*Workspace),
		gw:     gw,
		cfg:    cfg,
		logger: logger,
	}
}

// Activate is called once an identity is established. It loads the user's
// stats and sessions and builds their timer. Activating an already active
// user returns the existing workspace.
//
// Concurrent activations of the same user share one build, so a first
// sign-in seeds and saves exactly one initial session.
func (w *Workspaces) Activate(ctx context.Context, user *model.UserProfile) *Workspace {
	if ws, ok := w.Get(user.ID); ok {
		return ws
	}

	// Load outside w.mu so one slow backend read doesn't stall every
	// other user.
	v, _, _ := w.builds.Do(user.ID, func() (any, error) {
		if ws, ok := w.Get(user.ID); ok {
			return ws, nil
		}

		ws := w.build(ctx, user.ID)

		w.mu.Lock()
		w.items[user.ID] = ws
		w.mu.Unlock()

		w.logger.Info("workspace activated",
			slog.String("user_id", user.ID),
			slog.Int("points", ws.Tracker.Stats().Points),
			slog.Int("sessions", len(ws.Sessions.List())),
		)
		return ws, nil
	})
	return v.(*Workspace)
}

func (w *Workspaces) build(ctx context.Context, userID string) *Workspace {
	logger := w.logger.With(slog.String("user_id", userID))
	ws := &Workspace{
		UserID:   userID,
		Tracker:  LoadTracker(ctx, w.gw, userID, logger),
		Sessions: LoadSessionStore(ctx, w.gw, userID, logger),
		logger:   logger,
	}

	ws.Timer = timer.New(timer.Config{
		Interval: w.cfg.TimerInterval,
		Minutes:  w.cfg.FocusMinutes,
		Alerter:  w.cfg.Alerter,
		OnComplete: func(s model.TimerState) {
			amount := w.cfg.Awards[s.Mode]
			if amount <= 0 {
				return
			}
			ws.Tracker.AddPoints(context.Background(), amount, completionReason(s))
		},
		Logger: logger,
	})

	return ws
}

func completionReason(s model.TimerState) string {
	reason := fmt.Sprintf("%s cycle completed", strings.ToLower(string(s.Mode)))
	if d := strings.TrimSpace(s.Deliverable); d != "" {
		reason += ": " + d
	}
	return reason
}

// Get returns the active workspace for userID.
func (w *Workspaces) Get(userID string) (*Workspace, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.items[userID]
	return ws, ok
}

// Deactivate stops the user's timer and forgets their in-memory state.
// Everything that matters has already been saved.
func (w *Workspaces) Deactivate(userID string) {
	w.mu.Lock()
	ws, ok := w.items[userID]
	delete(w.items, userID)
	w.mu.Unlock()

	if !ok {
		return
	}
	ws.Timer.Close()
	w.logger.Info("workspace deactivated", slog.String("user_id", userID))
}

// Close deactivates every workspace. Used on shutdown.
func (w *Workspaces) Close() {
	w.mu.Lock()
	items := w.items
	w.items = make(map[string]*Workspace)
	w.mu.Unlock()

	for _, ws := range items {
		ws.Timer.Close()
	}
}
