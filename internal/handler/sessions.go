package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/service"
)

// SessionHandler serves the chat history of the signed-in user.
type SessionHandler struct {
	workspaces *service.Workspaces
	logger     *slog.Logger
}

func NewSessionHandler(workspaces *service.Workspaces, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{workspaces: workspaces, logger: logger}
}

type sessionListResponse struct {
	Sessions []model.ChatSession `json:"sessions"`
	ActiveID string              `json:"activeId"`
}

// HandleList returns every session plus the active id.
//
// HTTP: GET /api/sessions
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionListResponse{
		Sessions: ws.Sessions.List(),
		ActiveID: ws.Sessions.ActiveID(),
	})
}

// HandleCreate starts a new session and makes it active.
//
// HTTP: POST /api/sessions
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ws.Sessions.Create(r.Context()))
}

// HandleGetActive returns the active session.
//
// HTTP: GET /api/sessions/active
func (h *SessionHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ws.Sessions.Active())
}

type selectRequest struct {
	ID string `json:"id"`
}

// HandleSelect switches the active session.
//
// HTTP: PUT /api/sessions/active  {"id": "..."}
func (h *SessionHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if !ws.Sessions.Select(r.Context(), req.ID) {
		writeError(w, apperror.NotFound("session", req.ID))
		return
	}

	writeJSON(w, http.StatusOK, ws.Sessions.Active())
}

// HandleUpdate replaces a session wholesale.
//
// HTTP: PUT /api/sessions/{id}
//
// An unknown id is not an error: nothing changes and the response is 204.
func (h *SessionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	var sess model.ChatSession
	if err := decodeJSON(w, r, &sess); err != nil {
		writeError(w, err)
		return
	}
	// The URL wins over whatever id the body carries.
	sess.ID = chi.URLParam(r, "id")

	for _, m := range sess.Messages {
		if !m.Role.Valid() {
			writeError(w, apperror.ValidationFailed("messages", "message role must be 'user' or 'model'"))
			return
		}
	}

	if !ws.Sessions.Update(r.Context(), sess) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	updated, err := ws.Sessions.Get(sess.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type appendRequest struct {
	Role model.Role `json:"role"`
	Text string     `json:"text"`
}

// HandleAppendMessage adds a message to a session.
//
// HTTP: POST /api/sessions/{id}/messages  {"role": "model", "text": "..."}
//
// Model replies may carry a points tag; the response reports any award and
// the resulting stats.
func (h *SessionHandler) HandleAppendMessage(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	var req appendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := ws.AppendMessage(r.Context(), chi.URLParam(r, "id"), req.Role, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}
