package model

import "time"

// Progression constants.
const (
	MaxPoints      = 10000
	PointsPerLevel = 500
)

// Achievement is a one-time unlock. UnlockedAt is set once and never rewritten.
type Achievement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// UserStats is the persisted progression record for one user.
//
// Level is stored for the benefit of clients that read the raw JSON, but it
// is never trusted on the way in: it is always recomputed from Points.
type UserStats struct {
	UserID       string        `json:"userId"`
	Points       int           `json:"points"`
	Level        int           `json:"level"`
	Streak       int           `json:"streak"`
	Achievements []Achievement `json:"achievements"`
}

// NewUserStats returns the starting record for a user.
func NewUserStats(userID string) UserStats {
	return UserStats{
		UserID:       userID,
		Points:       0,
		Level:        1,
		Streak:       0,
		Achievements: []Achievement{},
	}
}

// LevelFor derives the level from a points total.
func LevelFor(points int) int {
	return points/PointsPerLevel + 1
}

// ClampPoints bounds a total to [0, MaxPoints].
func ClampPoints(points int) int {
	switch {
	case points < 0:
		return 0
	case points > MaxPoints:
		return MaxPoints
	}
	return points
}

// HasAchievement reports whether id is already unlocked.
func (s UserStats) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// LevelProgress is the percentage (0-99) towards the next level.
func (s UserStats) LevelProgress() int {
	return (s.Points % PointsPerLevel) / 5
}

// Rank is the title shown next to the level.
func (s UserStats) Rank() string {
	return RankFor(s.Points)
}

// Clone returns a copy that does not share the achievements slice.
func (s UserStats) Clone() UserStats {
	out := s
	out.Achievements = make([]Achievement, len(s.Achievements))
	copy(out.Achievements, s.Achievements)
	return out
}

// RankFor maps a points total onto its rank title.
func RankFor(points int) string {
	switch {
	case points < 500:
		return "Initiate"
	case points < 2500:
		return "Apprentice"
	case points < 5000:
		return "Practitioner"
	case points < MaxPoints:
		return "Dominant"
	default:
		return "Legend"
	}
}

// Milestone is a points threshold that unlocks an achievement.
type Milestone struct {
	ID          string
	Title       string
	Description string
	Icon        string
	Threshold   int
}

// Milestones is the unlock table, evaluated after every point change.
// Thresholds must stay <= MaxPoints or they can never fire.
var Milestones = []Milestone{
	{
		ID:          "milestone_500",
		Title:       "First Break",
		Description: "Reached 500 points. You left inertia behind.",
		Icon:        "🥉",
		Threshold:   500,
	},
}
