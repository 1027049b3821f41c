package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/serenline/go-support-backend/internal/domain"
)

type authFunc func(ctx context.Context, token string) (*domain.User, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return f(ctx, token)
}

// newAuthedRouter mounts a probe route behind SessionAuth and records what the
// middleware stored in the context.
func newAuthedRouter(auth Authenticator) (*gin.Engine, **gin.Context) {
	gin.SetMode(gin.TestMode)
	seen := new(*gin.Context)
	r := gin.New()
	r.GET("/probe", SessionAuth(auth), func(c *gin.Context) {
		*seen = c.Copy()
		c.Status(http.StatusOK)
	})
	return r, seen
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validAuth(t *testing.T, wantToken string) Authenticator {
	return authFunc(func(ctx context.Context, token string) (*domain.User, error) {
		if token != wantToken {
			t.Errorf("token = %q, want %q", token, wantToken)
		}
		return &domain.User{ID: "u1", Username: "alice"}, nil
	})
}

func TestSessionAuth_MissingToken(t *testing.T) {
	r, _ := newAuthedRouter(authFunc(func(ctx context.Context, token string) (*domain.User, error) {
		t.Fatal("authenticator must not run without a token")
		return nil, nil
	}))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/probe", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unauthorized") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSessionAuth_UnknownOrExpiredToken(t *testing.T) {
	r, _ := newAuthedRouter(authFunc(func(ctx context.Context, token string) (*domain.User, error) {
		return nil, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer stale")
	w := serve(r, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid or expired session") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSessionAuth_StoreFailureIs503(t *testing.T) {
	r, _ := newAuthedRouter(authFunc(func(ctx context.Context, token string) (*domain.User, error) {
		return nil, errors.New("disk I/O error")
	}))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := serve(r, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "store_unavailable") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSessionAuth_StoresIdentity(t *testing.T) {
	r, seen := newAuthedRouter(validAuth(t, "tok"))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	c := *seen
	if got := c.GetString(CtxUserID); got != "u1" {
		t.Fatalf("user id = %q", got)
	}
	if got := c.GetString(CtxUsername); got != "alice" {
		t.Fatalf("username = %q", got)
	}
	if u, ok := UserFrom(c); !ok || u.ID != "u1" {
		t.Fatalf("UserFrom = %+v, %v", u, ok)
	}
	if got := TokenFrom(c); got != "tok" {
		t.Fatalf("TokenFrom = %q", got)
	}
}

func TestSessionAuth_BearerSchemeCaseInsensitive(t *testing.T) {
	r, _ := newAuthedRouter(validAuth(t, "tok"))

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", scheme+" tok")
		if w := serve(r, req); w.Code != http.StatusOK {
			t.Errorf("scheme %q: status = %d", scheme, w.Code)
		}
	}
}

func TestSessionAuth_QueryFallback(t *testing.T) {
	r, _ := newAuthedRouter(validAuth(t, "tok-q"))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/probe?st=tok-q", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSessionAuth_HeaderWinsOverQuery(t *testing.T) {
	r, _ := newAuthedRouter(validAuth(t, "header-tok"))

	req := httptest.NewRequest(http.MethodGet, "/probe?st=query-tok", nil)
	req.Header.Set("Authorization", "Bearer header-tok")
	if w := serve(r, req); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestExtractToken_MalformedHeaderFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/x?st=qtok", nil)
	c.Request.Header.Set("Authorization", "Basic abc123")

	if got := extractToken(c); got != "qtok" {
		t.Fatalf("extractToken = %q, want query fallback", got)
	}
}

func TestUserFrom_Absent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if u, ok := UserFrom(c); ok || u != nil {
		t.Fatalf("UserFrom on bare context = %+v, %v", u, ok)
	}
}
