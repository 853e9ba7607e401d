package model

import "time"

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Session titles and the seeded greeting.
const (
	InitialSessionTitle     = "Initial Session"
	NewSessionTitle         = "New Strategy"
	PlaceholderSessionID    = "loading"
	PlaceholderSessionTitle = "Loading..."

	WelcomeMessage = "Welcome to the Evolution Code Mentor.\n" +
		"There is no confusion here, only direction.\n" +
		"Tell me where you are stuck right now, and let's structure it."
)

// Message is a single entry in a chat session. Immutable once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is an append-only log of messages plus a mutable title.
type ChatSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	LastModified time.Time `json:"lastModified"`
}

// HasDefaultTitle reports whether the title was never customised.
func (s ChatSession) HasDefaultTitle() bool {
	return s.Title == InitialSessionTitle || s.Title == NewSessionTitle || s.Title == ""
}

// Clone returns a deep copy so callers cannot mutate stored messages.
func (s ChatSession) Clone() ChatSession {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}
