package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/mentor/internal/model"
)

// CookieName is the HttpOnly cookie that carries the session JWT.
const CookieName = "token"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "user", u), ANY package that knows the string "user"
// can read or shadow your value. Using a package-private type prevents collisions.
type contextKey string

const userKey contextKey = "user"

// SessionResolver turns a raw token into the profile it belongs to.
// It returns (nil, nil) for tokens that are unknown, expired or revoked.
type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*model.UserProfile, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "token" cookie (or an Authorization: Bearer
// header), asks the resolver for the matching profile and stores it in the
// request context. Missing, invalid and revoked tokens all get 401.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... do stuff after the handler ...
//	    })
//	}
func RequireAuth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w)
				return
			}

			user, err := sessions.GetSession(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"internal_error","message":"an unexpected error occurred"}`, http.StatusInternalServerError)
				return
			}
			if user == nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
}

// WithUser returns a copy of ctx carrying the authenticated profile.
func WithUser(ctx context.Context, u *model.UserProfile) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the authenticated profile from the request context.
//
// Returns (nil, false) if the request never passed through RequireAuth.
func UserFromContext(ctx context.Context) (*model.UserProfile, bool) {
	u, ok := ctx.Value(userKey).(*model.UserProfile)
	return u, ok && u != nil
}

// TokenFromRequest extracts the raw session token.
//
// The cookie wins over the header. Browsers send the cookie automatically;
// the header exists for CLI clients and tests.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
