// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return *AppError values that wrap one of the sentinels below.
// Callers test the category with errors.Is and read the human-readable text
// with errors.As, so the HTTP layer can pick a status code without the
// service knowing anything about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistenceRead marks stored data that could not be read back.
	// It is recovered locally (default value substituted) and only logged.
	ErrPersistenceRead = errors.New("persistence read error")

	// ErrPlayback marks a completion alert that failed to play. Never fatal.
	ErrPlayback = errors.New("playback error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// DuplicateIdentity reports a registration for an email that already has a
// credential. It is a conflict, so handlers map it to 409.
func DuplicateIdentity(email string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("an account already exists for %s", email),
		Field:   "email",
	}
}

// InvalidCredentials is returned for both an unknown email and a wrong
// password so the response does not reveal which accounts exist.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid email or password",
	}
}

// Unauthorized returns an AppError for a missing or unusable session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// PersistenceRead wraps a decode or backend failure for a stored key.
func PersistenceRead(key string, err error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrPersistenceRead, err),
		Message: fmt.Sprintf("reading stored %s: %v", key, err),
		Field:   key,
	}
}

// Playback wraps a failed completion alert.
func Playback(err error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrPlayback, err),
		Message: fmt.Sprintf("completion alert failed: %v", err),
	}
}
