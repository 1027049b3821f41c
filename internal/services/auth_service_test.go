package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/serenline/go-support-backend/internal/store"
)

// plainHasher avoids bcrypt cost in tests.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hash:" + plain, nil }
func (plainHasher) Verify(plain, hash string) bool    { return hash == "hash:"+plain }

func newTestAuthService() (*AuthService, *store.Adapter) {
	adapter := store.NewAdapter(store.NewMemoryStore(), zerolog.Nop())
	svc := NewAuthService(adapter)
	svc.Hasher = plainHasher{}
	return svc, adapter
}

func TestRegister_CreatesUserAndSession(t *testing.T) {
	ctx := context.Background()
	svc, adapter := newTestAuthService()

	user, session, err := svc.Register(ctx, "alice", "secret1", "alice@example.com")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Username != "alice" || user.ID == "" {
		t.Fatalf("user = %+v", user)
	}
	if user.PasswordHash != "hash:secret1" {
		t.Fatalf("hash = %q", user.PasswordHash)
	}
	if session.Token == "" || session.UserID != user.ID {
		t.Fatalf("session = %+v", session)
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != DefaultSessionTTL {
		t.Fatalf("session lifetime = %v, want %v", got, DefaultSessionTTL)
	}

	recs, err := adapter.FindAll(ctx, store.Predicate{store.AttrType: store.KindUser})
	if err != nil || len(recs) != 1 {
		t.Fatalf("stored users = %d, err %v", len(recs), err)
	}
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()

	cases := map[string]struct {
		username, password string
		want               error
	}{
		"short username":     {"ab", "secret1", ErrInvalidUsername},
		"long username":      {strings.Repeat("a", 21), "secret1", ErrInvalidUsername},
		"bad characters":     {"al!ce", "secret1", ErrInvalidUsername},
		"space in username":  {"al ce", "secret1", ErrInvalidUsername},
		"short password":     {"alice", "12345", ErrInvalidPassword},
		"long password":      {"alice", strings.Repeat("x", 101), ErrInvalidPassword},
		"hyphen+underscore":  {"a-b_c", "secret1", nil},
		"boundary lengths":   {"abc", "123456", nil},
	}
	for name, tc := range cases {
		_, _, err := svc.Register(ctx, tc.username, tc.password, "")
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", name, err, tc.want)
		}
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()

	if _, _, err := svc.Register(ctx, "alice", "secret1", ""); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "alice", "other99", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()
	_, _, _ = svc.Register(ctx, "alice", "secret1", "")

	user, session, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Username != "alice" || session.Token == "" {
		t.Fatalf("login result = %+v / %+v", user, session)
	}

	if _, _, err := svc.Login(ctx, "alice", "wrong00"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password err = %v, want ErrBadCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "secret1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err = %v, want ErrUserNotFound", err)
	}
}

func TestLogin_AllowsConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()
	_, s1, _ := svc.Register(ctx, "alice", "secret1", "")
	_, s2, err := svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s1.Token == s2.Token {
		t.Fatalf("second login reused the token")
	}

	for _, tok := range []string{s1.Token, s2.Token} {
		u, err := svc.Authenticate(ctx, tok)
		if err != nil || u == nil {
			t.Fatalf("Authenticate(%q) = %v, %v", tok, u, err)
		}
	}
}

func TestAuthenticate_UnknownTokenIsNilNil(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()

	for _, tok := range []string{"", "ghost"} {
		u, err := svc.Authenticate(ctx, tok)
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", tok, err)
		}
		if u != nil {
			t.Fatalf("Authenticate(%q) = %+v, want nil", tok, u)
		}
	}
}

func TestAuthenticate_ExpiredSessionIsLazilyDeleted(t *testing.T) {
	ctx := context.Background()
	svc, adapter := newTestAuthService()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	_, session, err := svc.Register(ctx, "alice", "secret1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Jump past the TTL.
	now = now.Add(DefaultSessionTTL + time.Minute)

	u, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u != nil {
		t.Fatalf("expired session authenticated: %+v", u)
	}

	// The dead record is gone from the store.
	recs, _ := adapter.FindAll(ctx, store.Predicate{
		store.AttrType:  store.KindAuthSession,
		store.AttrToken: session.Token,
	})
	if len(recs) != 0 {
		t.Fatalf("expired session record still stored: %+v", recs)
	}
}

func TestLogout_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()
	_, session, _ := svc.Register(ctx, "alice", "secret1", "")

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if u, _ := svc.Authenticate(ctx, session.Token); u != nil {
		t.Fatalf("token survived logout")
	}
	// Second logout of the same token is a no-op.
	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Fatalf("empty Logout: %v", err)
	}
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()
	user, _, _ := svc.Register(ctx, "alice", "secret1", "")
	_, _, _ = svc.Login(ctx, "alice", "secret1")
	_, _, _ = svc.Login(ctx, "alice", "secret1")

	n, err := svc.LogoutAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("removed = %d, want 3", n)
	}
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	_, old, _ := svc.Register(ctx, "alice", "secret1", "")

	// A week later alice logs in again; the first session has expired.
	now = now.Add(DefaultSessionTTL + time.Hour)
	_, fresh, _ := svc.Login(ctx, "alice", "secret1")

	n, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	if u, _ := svc.Authenticate(ctx, old.Token); u != nil {
		t.Fatalf("expired token survived the sweep")
	}
	if u, _ := svc.Authenticate(ctx, fresh.Token); u == nil {
		t.Fatalf("live token swept")
	}
}

func TestNewSessionToken_UniqueAndURLSafe(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := newSessionToken()
		if err != nil {
			t.Fatalf("newSessionToken: %v", err)
		}
		if len(tok) != 43 { // 32 bytes, raw url-safe base64
			t.Fatalf("token length = %d", len(tok))
		}
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("token not url-safe: %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token")
		}
		seen[tok] = true
	}
}
