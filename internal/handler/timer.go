package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/service"
	"github.com/sakif/mentor/internal/timer"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// TimerHandler exposes the focus timer over HTTP and a websocket stream.
type TimerHandler struct {
	workspaces *service.Workspaces
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

func NewTimerHandler(workspaces *service.Workspaces, logger *slog.Logger) *TimerHandler {
	return &TimerHandler{
		workspaces: workspaces,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// HandleGet returns the timer state.
//
// HTTP: GET /api/timer
func (h *TimerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Timer.Snapshot())
}

type setTimerRequest struct {
	Minutes     int             `json:"minutes"`
	Seconds     int             `json:"seconds"`
	Mode        model.TimerMode `json:"mode"`
	Deliverable string          `json:"deliverable"`
}

// HandleSet configures the countdown. 409 while the timer is running.
//
// HTTP: PUT /api/timer
func (h *TimerHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	var req setTimerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := ws.Timer.Set(req.Minutes, req.Seconds, req.Mode, req.Deliverable); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Timer.Snapshot())
}

// HandleStart starts the countdown. Starting a running timer is a no-op.
//
// HTTP: POST /api/timer/start
func (h *TimerHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	ws.Timer.Start()
	writeJSON(w, http.StatusOK, ws.Timer.Snapshot())
}

// HandleStop pauses the countdown without completing it.
//
// HTTP: POST /api/timer/stop
func (h *TimerHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	ws.Timer.Stop()
	writeJSON(w, http.StatusOK, ws.Timer.Snapshot())
}

// HandleStream upgrades to a websocket and pushes every timer event as JSON.
// The current state is sent first so a client can render immediately.
//
// HTTP: GET /api/timer/ws
func (h *TimerHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := workspaceFor(r, h.workspaces)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	events, cancel := ws.Timer.Subscribe()
	done := make(chan struct{})

	go h.readPump(conn, done)
	h.writePump(conn, events, done, ws.Timer.Snapshot())
	cancel()
}

// readPump discards client messages and notices when the peer goes away.
func (h *TimerHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("timer stream closed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (h *TimerHandler) writePump(conn *websocket.Conn, events <-chan timer.Event, done <-chan struct{}, initial timer.Snapshot) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(timer.Event{Type: timer.EventState, State: initial}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "timer closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
