package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Get(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "ada@example.com")

	rec := api.do(t, http.MethodGet, "/api/stats", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var s statsResponse
	decode(t, rec, &s)
	assert.Equal(t, 0, s.Points)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, "Initiate", s.Rank)
	assert.Equal(t, 0, s.LevelProgress)
	assert.Equal(t, 500, s.NextLevelAt)
	assert.Empty(t, s.Achievements)
}

func TestStats_ReflectAwardsAndMilestones(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "ada@example.com")

	var list sessionListResponse
	decode(t, api.do(t, http.MethodGet, "/api/sessions", nil, token), &list)

	rec := api.do(t, http.MethodPost, "/api/sessions/"+list.ActiveID+"/messages", map[string]string{
		"role": "model", "text": "<<<POINTS:650:big milestone>>>",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var s statsResponse
	decode(t, api.do(t, http.MethodGet, "/api/stats", nil, token), &s)
	assert.Equal(t, 650, s.Points)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, "Apprentice", s.Rank)
	assert.Equal(t, 30, s.LevelProgress)
	assert.Equal(t, 1000, s.NextLevelAt)
	require.Len(t, s.Achievements, 1)
	assert.Equal(t, "milestone_500", s.Achievements[0].ID)
}
