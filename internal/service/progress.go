package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/store"
)

// Tracker owns one user's progression record.
//
// Every mutation goes through AddPoints, which holds the lock across the
// change and the save, so the timer goroutine and HTTP requests can award
// points concurrently without losing updates.
type Tracker struct {
	mu     sync.Mutex
	stats  model.UserStats
	userID string
	gw     *store.Gateway
	logger *slog.Logger
	now    func() time.Time
}

// LoadTracker reads the stored stats for userID, or starts a fresh record.
//
// Stored data is normalised on the way in: points are clamped to
// [0, MaxPoints], level is recomputed and the owner id is forced, so a hand
// edited or stale record can't break the invariants.
func LoadTracker(ctx context.Context, gw *store.Gateway, userID string, logger *slog.Logger) *Tracker {
	s := store.Load(ctx, gw, userID, store.KeyStats, model.NewUserStats(userID))

	s.UserID = userID
	s.Points = model.ClampPoints(s.Points)
	s.Level = model.LevelFor(s.Points)
	if s.Achievements == nil {
		s.Achievements = []model.Achievement{}
	}

	return &Tracker{
		stats:  s,
		userID: userID,
		gw:     gw,
		logger: logger,
		now:    time.Now,
	}
}

// Stats returns a copy of the current record.
func (t *Tracker) Stats() model.UserStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats.Clone()
}

// AddPoints applies a positive award and persists the result.
//
// Non-positive amounts change nothing and write nothing. Totals saturate at
// MaxPoints. A failed save is logged; the in-memory record keeps the award.
func (t *Tracker) AddPoints(ctx context.Context, amount int, reason string) model.UserStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount <= 0 {
		return t.stats.Clone()
	}

	// Compare against the headroom instead of adding first, so a huge
	// amount can't overflow int.
	if amount >= model.MaxPoints-t.stats.Points {
		t.stats.Points = model.MaxPoints
	} else {
		t.stats.Points += amount
	}
	t.stats.Level = model.LevelFor(t.stats.Points)
	t.unlockMilestones()

	t.logger.Info("points awarded",
		slog.String("user_id", t.userID),
		slog.Int("amount", amount),
		slog.String("reason", reason),
		slog.Int("total", t.stats.Points),
		slog.Int("level", t.stats.Level),
	)

	if err := t.gw.Save(ctx, t.userID, store.KeyStats, t.stats); err != nil {
		t.logger.Error("failed to save stats",
			slog.String("user_id", t.userID),
			slog.String("error", err.Error()),
		)
	}

	return t.stats.Clone()
}

// unlockMilestones must be called with t.mu held.
func (t *Tracker) unlockMilestones() {
	for _, m := range model.Milestones {
		if t.stats.Points < m.Threshold || t.stats.HasAchievement(m.ID) {
			continue
		}
		t.stats.Achievements = append(t.stats.Achievements, model.Achievement{
			ID:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Icon:        m.Icon,
			UnlockedAt:  t.now().UTC(),
		})
		t.logger.Info("achievement unlocked",
			slog.String("user_id", t.userID),
			slog.String("achievement", m.ID),
		)
	}
}
