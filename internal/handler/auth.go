package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/mentor/internal/apperror"
	"github.com/sakif/mentor/internal/auth"
	"github.com/sakif/mentor/internal/model"
	"github.com/sakif/mentor/internal/service"
)

// AuthHandler manages registration, login and session cookies.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account, set the session cookie
//   - HandleLogin    → verify a credential, set the session cookie
//   - HandleLogout   → revoke the token, clear the cookie
//   - HandleMe       → return the currently logged-in user's profile
//
// Every successful sign-in also activates the user's workspace, so their
// stats and sessions are loaded before the first /api call.
type AuthHandler struct {
	auth          *service.AuthService
	workspaces    *service.Workspaces
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	authService *service.AuthService,
	workspaces *service.Workspaces,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:          authService,
		workspaces:    workspaces,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is what register and login return. The token is included for
// clients that prefer an Authorization header over the cookie.
type authResponse struct {
	User      *model.UserProfile `json:"user"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Password != req.ConfirmPassword {
		writeError(w, apperror.ValidationFailed("confirmPassword", "passwords do not match"))
		return
	}

	res, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.logFailure("register", err)
		writeError(w, err)
		return
	}

	h.signIn(w, r, res, http.StatusCreated)
}

// HandleLogin verifies a credential and signs the user in.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logFailure("login", err)
		writeError(w, err)
		return
	}

	h.signIn(w, r, res, http.StatusOK)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, res *service.AuthResult, status int) {
	h.workspaces.Activate(r.Context(), res.User)

	// Set the JWT as an HttpOnly cookie.
	// HttpOnly = JavaScript cannot read this cookie (XSS protection).
	// SameSite=Lax = cookie is sent on top-level navigations but not cross-site POSTs.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    res.Token.Token,
		Path:     "/",
		Expires:  res.Token.ExpiresAt,
		MaxAge:   int(time.Until(res.Token.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, status, authResponse{
		User:      res.User,
		Token:     res.Token.Token,
		ExpiresAt: res.Token.ExpiresAt,
	})
}

// logFailure keeps expected rejections at Info and real failures at Error.
func (h *AuthHandler) logFailure(op string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		h.logger.Info(op+" rejected", slog.String("reason", appErr.Message))
		return
	}
	h.logger.Error(op+" failed", slog.String("error", err.Error()))
}

// HandleLogout revokes the session token and clears the cookie.
//
// HTTP: POST /auth/logout
//
// WHY POST AND NOT GET?
// Logout is a state-changing operation. Using GET would be vulnerable to
// CSRF and to browsers pre-fetching the URL.
//
// Logging out without a session, or twice, still returns 200.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)

	if user, err := h.auth.GetSession(r.Context(), token); err == nil && user != nil {
		h.workspaces.Deactivate(user.ID)
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware puts the profile in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	writeJSON(w, http.StatusOK, user)
}
