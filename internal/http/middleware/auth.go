// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-session authentication. Protected routes run
// SessionAuth, which resolves the presented token to a user via the auth
// service and stores the identity in the Gin context for handlers and the
// rate limiter.
//
// The token travels in the Authorization header ("Bearer <token>"); clients
// that cannot set headers may fall back to the `st` query parameter. The
// query fallback is scrubbed from access logs by Logger().
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/serenline/go-support-backend/internal/domain"
)

const (
	// CtxUserID is the Gin context key holding the authenticated user's id.
	CtxUserID = "userID"
	// CtxUsername is the Gin context key holding the authenticated username.
	CtxUsername = "username"
	// ctxUser is the Gin context key holding the full user value.
	ctxUser = "user"
	// ctxToken is the Gin context key holding the presented session token.
	ctxToken = "sessionToken"

	// tokenQueryParam is the query-string fallback for the session token.
	tokenQueryParam = "st"
)

// Authenticator resolves a session token to a user. A nil user with a nil
// error means the token is unknown or expired.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// SessionAuth returns a Gin middleware that requires a valid session token.
//
// Unauthenticated requests are rejected with 401 and the standard error
// envelope; store failures surface as 503 so clients can distinguish "log in
// again" from "try again later".
func SessionAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Set(ctxToken, token)

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "store_unavailable",
				"message":    "record store unavailable",
			})
			return
		}
		if user == nil {
			abortUnauthorized(c, "invalid or expired session")
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxUsername, user.Username)
		c.Set(ctxUser, user)
		c.Next()
	}
}

// TokenFrom returns the session token presented on this request, or "" when
// the request carried none.
func TokenFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxToken); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return extractToken(c)
}

// UserFrom returns the authenticated user stored by SessionAuth.
func UserFrom(c *gin.Context) (*domain.User, bool) {
	if v, ok := c.Get(ctxUser); ok {
		if u, ok := v.(*domain.User); ok {
			return u, true
		}
	}
	return nil, false
}

// extractToken pulls the session token from the Authorization header, falling
// back to the query parameter.
func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Query(tokenQueryParam))
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
