// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// UserProfile represents a registered identity.
//
// WHY NO PASSWORD FIELD?
// The profile is what every other layer sees (handlers return it as JSON,
// the workspace keys storage by its ID). The password hash lives in
// Credential, which only the identity store ever touches, so a profile can
// be serialised anywhere without leaking it.
type UserProfile struct {
	ID        string    `json:"id"        db:"id"`
	Email     string    `json:"email"     db:"email"`
	Name      string    `json:"name"      db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	LastLogin time.Time `json:"lastLogin" db:"last_login"`
}

// Credential maps an email to a bcrypt hash and the owning profile ID.
// One credential per email, enforced by a UNIQUE column.
type Credential struct {
	UserID       string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
}

// AuthToken is the server-side record of an issued session token.
// The JWT carries the ID in its "jti" claim; deleting the row revokes it.
type AuthToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
