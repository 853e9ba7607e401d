package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/store"
)

// maxTitleRunes is how much of the first user message becomes the title.
const maxTitleRunes = 40

// SessionStore holds one user's chat sessions and which one is active.
//
// A zero SessionStore is valid: it behaves as "not loaded yet" and Active
// returns the placeholder session.
type SessionStore struct {
	mu       sync.Mutex
	sessions []model.ChatSession
	activeID string
	userID   string
	gw       *store.Gateway
	logger   *slog.Logger
	now      func() time.Time
}

// LoadSessionStore reads userID's sessions. A missing, corrupt or empty list
// is replaced by a single seeded session that is saved right away.
func LoadSessionStore(ctx context.Context, gw *store.Gateway, userID string, logger *slog.Logger) *SessionStore {
	s := &SessionStore{
		userID: userID,
		gw:     gw,
		logger: logger,
		now:    time.Now,
	}

	s.sessions = store.Load[[]model.ChatSession](ctx, gw, userID, store.KeySessions, nil)
	if len(s.sessions) == 0 {
		s.sessions = []model.ChatSession{s.newSession(model.InitialSessionTitle)}
		s.persist(ctx)
	}
	for i := range s.sessions {
		if s.sessions[i].Messages == nil {
			s.sessions[i].Messages = []model.Message{}
		}
	}
	s.activeID = s.sessions[0].ID

	return s
}

func (s *SessionStore) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *SessionStore) newSession(title string) model.ChatSession {
	now := s.clock()
	return model.ChatSession{
		ID:    xid.New().String(),
		Title: title,
		Messages: []model.Message{{
			ID:        xid.New().String(),
			Role:      model.RoleModel,
			Text:      model.WelcomeMessage,
			Timestamp: now,
		}},
		LastModified: now,
	}
}

// persist must be called with s.mu held (or before s is shared).
func (s *SessionStore) persist(ctx context.Context) {
	if s.gw == nil {
		return
	}
	if err := s.gw.Save(ctx, s.userID, store.KeySessions, s.sessions); err != nil {
		s.logger.Error("failed to save sessions",
			slog.String("user_id", s.userID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SessionStore) indexOf(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// Create appends a fresh session, makes it active and saves.
func (s *SessionStore) Create(ctx context.Context) model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.newSession(model.NewSessionTitle)
	s.sessions = append(s.sessions, sess)
	s.activeID = sess.ID
	s.persist(ctx)

	if s.logger != nil {
		s.logger.Debug("session created", slog.String("user_id", s.userID), slog.String("session_id", sess.ID))
	}
	return sess.Clone()
}

// Update replaces the stored session with the same id. It reports false, and
// writes nothing, when no such session exists.
func (s *SessionStore) Update(ctx context.Context, sess model.ChatSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(sess.ID)
	if i < 0 {
		return false
	}
	updated := sess.Clone()
	if updated.Messages == nil {
		updated.Messages = []model.Message{}
	}
	s.sessions[i] = updated
	s.persist(ctx)
	return true
}

// Active returns the active session, falling back to the first one when the
// active id is stale.
func (s *SessionStore) Active() model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) == 0 {
		return model.ChatSession{
			ID:       model.PlaceholderSessionID,
			Title:    model.PlaceholderSessionTitle,
			Messages: []model.Message{},
		}
	}
	if i := s.indexOf(s.activeID); i >= 0 {
		return s.sessions[i].Clone()
	}
	return s.sessions[0].Clone()
}

// ActiveID reports the id Active would resolve to.
func (s *SessionStore) ActiveID() string {
	return s.Active().ID
}

// Select makes id the active session. Unknown ids are ignored.
func (s *SessionStore) Select(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// Get returns a copy of one session.
func (s *SessionStore) Get(id string) (model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.ChatSession{}, apperror.NotFound("session", id)
	}
	return s.sessions[i].Clone(), nil
}

// List returns copies of every session in creation order.
func (s *SessionStore) List() []model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ChatSession, len(s.sessions))
	for i := range s.sessions {
		out[i] = s.sessions[i].Clone()
	}
	return out
}

// AppendMessage adds a message to the end of a session and saves.
//
// The first user message in a session that still carries a default title
// renames it after the message.
func (s *SessionStore) AppendMessage(ctx context.Context, sessionID string, role model.Role, text string) (model.ChatSession, error) {
	if !role.Valid() {
		return model.ChatSession{}, apperror.ValidationFailed("role", "role must be 'user' or 'model'")
	}
	if strings.TrimSpace(text) == "" {
		return model.ChatSession{}, apperror.ValidationFailed("text", "message text is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(sessionID)
	if i < 0 {
		return model.ChatSession{}, apperror.NotFound("session", sessionID)
	}

	now := s.clock()
	sess := &s.sessions[i]

	if role == model.RoleUser && sess.HasDefaultTitle() && !hasUserMessage(sess.Messages) {
		sess.Title = titleFrom(text)
	}

	sess.Messages = append(sess.Messages, model.Message{
		ID:        xid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: now,
	})
	sess.LastModified = now
	s.persist(ctx)

	return sess.Clone(), nil
}

func hasUserMessage(msgs []model.Message) bool {
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			return true
		}
	}
	return false
}

func titleFrom(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) > maxTitleRunes {
		return string(r[:maxTitleRunes])
	}
	return text
}
