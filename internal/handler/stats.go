package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/service"
)

// StatsHandler serves the progression record.
type StatsHandler struct {
	workspaces *service.Workspaces
	logger     *slog.Logger
}

func NewStatsHandler(workspaces *service.Workspaces, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{workspaces: workspaces, logger: logger}
}

// statsResponse adds the derived display values to the stored record.
type statsResponse struct {
	model.UserStats
	Rank          string `json:"rank"`
	LevelProgress int    `json:"levelProgress"`
	NextLevelAt   int    `json:"nextLevelAt"`
}

// HandleGet returns the caller's stats.
//
// HTTP: GET /api/stats
func (h *StatsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	s := ws.Tracker.Stats()
	next := s.Level * model.PointsPerLevel
	if next > model.MaxPoints {
		next = model.MaxPoints
	}

	writeJSON(w, http.StatusOK, statsResponse{
		UserStats:     s,
		Rank:          s.Rank(),
		LevelProgress: s.LevelProgress(),
		NextLevelAt:   next,
	})
}
