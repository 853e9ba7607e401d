package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/service"
)

func TestSessions_SeededOnFirstSignIn(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "ada@example.com")

	rec := api.do(t, http.MethodGet, "/api/sessions", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var list sessionListResponse
	decode(t, rec, &list)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, model.InitialSessionTitle, list.Sessions[0].Title)
	assert.Equal(t, list.Sessions[0].ID, list.ActiveID)
	require.Len(t, list.Sessions[0].Messages, 1)
	assert.Equal(t, model.RoleModel, list.Sessions[0].Messages[0].Role)
}

func TestSessions_CreateAndSelect(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "ada@example.com")

	var first model.ChatSession
	decode(t, api.do(t, http.MethodGet, "/api/sessions/active", nil, token), &first)

	rec := api.do(t, http.MethodPost, "/api/sessions", nil, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.ChatSession
	decode(t, rec, &created)
	assert.Equal(t, model.NewSessionTitle, created.Title)

	var active model.ChatSession
	decode(t, api.do(t, http.MethodGet, "/api/sessions/active", nil, token), &active)
	assert.Equal(t, created.ID, active.ID, "a new session becomes active")

	rec = api.do(t, http.MethodPut, "/api/sessions/active", map[string]string{"id": first.ID}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &active)
	assert.Equal(t, first.ID, active.ID)

	rec = api.do(t, http.MethodPut, "/api/sessions/active", map[string]string{"id": "missing"}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_Update(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "ada@example.com")

	var active model.ChatSession
	decode(t, api.do(t, http.MethodGet, "/api/sessions/active", nil, token), &active)

	active.Title = "Refactoring plan"
	rec := api.do(t, http.MethodPut, "/api/sessions/"+active.ID, active, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.ChatSession
	decode(t, rec, &updated)
	assert.Equal(t, "Refactoring plan", updated.Title)

	t.Run("unknown id changes nothing", func(t *testing.T) {
		rec := api.do(t, http.MethodPut, "/api/sessions/ghost", active, token)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		var list sessionListResponse
		decode(t, api.do(t, http.MethodGet, "/api/sessions", nil, token), &list)
		assert.Len(t, list.Sessions, 1)
	})

	t.Run("bad role", func(t *testing.T) {
		bad := active
		bad.Messages = []model.Message{{ID: "m", Role: "system", Text: "x"}}
		rec := api.do(t, http.MethodPut, "/api/sessions/"+active.ID, bad, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessions_AppendMessageAwardsPoints(t *testing.T) {
	api := newTestAPI(t)
	token := api.register(t, "ada@example.com")

	var active model.ChatSession
	decode(t, api.do(t, http.MethodGet, "/api/sessions/active", nil, token), &active)
	path := "/api/sessions/" + active.ID + "/messages"

	rec := api.do(t, http.MethodPost, path, map[string]string{"role": "user", "text": "I finished the parser"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res service.MessageResult
	decode(t, rec, &res)
	assert.Nil(t, res.Award)
	assert.Equal(t, "I finished the parser", res.Session.Title)

	rec = api.do(t, http.MethodPost, path, map[string]string{
		"role": "model",
		"text": "Well done. <<<POINTS:120:parser shipped>>>",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	require.NotNil(t, res.Award)
	assert.Equal(t, 120, res.Award.Amount)
	assert.Equal(t, "parser shipped", res.Award.Reason)
	assert.Equal(t, 120, res.Stats.Points)

	last := res.Session.Messages[len(res.Session.Messages)-1]
	assert.Equal(t, "Well done.", last.Text, "the tag is stripped from the stored reply")

	t.Run("unknown session", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/sessions/ghost/messages", map[string]string{"role": "user", "text": "hi"}, token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, path, map[string]string{"role": "admin", "text": "hi"}, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessions_RequireAuth(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/sessions", "/api/sessions/active", "/api/stats", "/api/timer"} {
		rec := api.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
