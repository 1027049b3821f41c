// Auth HTTP handlers.
//
// This file exposes the identity endpoints:
//   - POST /auth/register  (create account, returns a session token)
//   - POST /auth/login     (verify credentials, returns a session token)
//   - POST /auth/logout    (invalidate the presented token)
//   - GET  /auth/me        (current user profile)
//
// Handlers are transport-thin: they validate input, call the auth service,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/serenline/go-support-backend/internal/domain"
	"github.com/serenline/go-support-backend/internal/http/middleware"
	"github.com/serenline/go-support-backend/internal/services"
	"github.com/serenline/go-support-backend/internal/store"
)

// AuthService defines the identity operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type AuthService interface {
	// Register creates an account and issues a fresh session.
	Register(ctx context.Context, username, password, email string) (*domain.User, *domain.AuthSession, error)
	// Login verifies credentials and issues a fresh session.
	Login(ctx context.Context, username, password string) (*domain.User, *domain.AuthSession, error)
	// Logout invalidates the given token; absent tokens are a no-op.
	Logout(ctx context.Context, token string) error
}

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	// Email is optional profile metadata.
	Email string `json:"email"`
}

// LoginRequest is the JSON payload for credential login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// Register creates an account and returns its first session token.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	user, session, err := h.authSvc.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrInvalidUsername), errors.Is(err, services.ErrInvalidPassword):
		fail(c, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	case errors.Is(err, services.ErrUsernameTaken):
		fail(c, http.StatusConflict, ErrCodeUsernameTaken, err.Error())
		return
	case errors.Is(err, store.ErrStoreUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusCreated, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      *user,
	})
}

// Login verifies credentials and returns a fresh session token. Unknown
// usernames and wrong passwords both map to 401 with distinct codes.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	user, session, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrBadCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, err.Error())
		return
	case errors.Is(err, store.ErrStoreUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      *user,
	})
}

// Logout invalidates the presented session token. It always returns 204 when
// the delete succeeds, whether or not the token existed.
func (h *Handlers) Logout(c *gin.Context) {
	token := middleware.TokenFrom(c)
	if err := h.authSvc.Logout(c.Request.Context(), token); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c *gin.Context) {
	user, found := middleware.UserFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	ok(c, http.StatusOK, user)
}
