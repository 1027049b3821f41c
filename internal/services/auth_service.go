// Package services – AuthService
//
// This file implements identity and bearer-session management: registration,
// credential login, token authentication with lazy expiry, logout, and the
// periodic expiry sweep. All state lives in the record store; the service
// itself is stateless.
//
// Known race (inherited from the original design, deliberately kept): the
// username-uniqueness check is query-before-insert. Two concurrent
// registrations of the same username can both pass the check; the store has
// no unique-constraint primitive to close the window.
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/serenline/go-support-backend/internal/domain"
	"github.com/serenline/go-support-backend/internal/store"
)

// DefaultSessionTTL is how long a freshly issued session stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// usernameRE is the allowed username alphabet; length is checked separately
// in runes so multi-byte input fails on the alphabet rule, not silently.
var usernameRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// PasswordHasher abstracts the one-way password hash so tests can substitute
// a cheap implementation.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// BcryptHasher is the production PasswordHasher.
type BcryptHasher struct {
	// Cost of the bcrypt key derivation; 0 means bcrypt.DefaultCost.
	Cost int
}

// Hash derives a salted bcrypt hash of the plain-text password.
func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plain matches the stored hash.
func (h BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// AuthService manages users and their bearer sessions.
type AuthService struct {
	Store  *store.Adapter
	Hasher PasswordHasher

	// SessionTTL is the lifetime of newly issued sessions.
	SessionTTL time.Duration

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewAuthService constructs an AuthService with bcrypt hashing and the
// default 7-day session lifetime.
func NewAuthService(st *store.Adapter) *AuthService {
	return &AuthService{
		Store:      st,
		Hasher:     BcryptHasher{},
		SessionTTL: DefaultSessionTTL,
		Now:        time.Now,
	}
}

// Register validates the credentials, creates the user, and issues a fresh
// session. Validation happens before any store round-trip.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, *domain.AuthSession, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}

	// Check-then-act; see the package comment for the concurrency caveat.
	_, exists, err := s.Store.FindOne(ctx, store.Predicate{
		store.AttrType:     store.KindUser,
		store.AttrUsername: username,
	})
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrUsernameTaken
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Email:        strings.TrimSpace(email),
		CreatedAt:    s.Now().UTC(),
	}
	if err := s.Store.Put(ctx, store.EncodeUser(user)); err != nil {
		return nil, nil, err
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, session, nil
}

// Login verifies the credentials and issues a new session. Multiple live
// sessions per user are allowed.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *domain.AuthSession, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	rec, found, err := s.Store.FindOne(ctx, store.Predicate{
		store.AttrType:     store.KindUser,
		store.AttrUsername: strings.TrimSpace(username),
	})
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrUserNotFound
	}
	user, err := store.DecodeUser(rec)
	if err != nil {
		return nil, nil, err
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrBadCredentials
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return &user, session, nil
}

// Authenticate resolves a bearer token to its owning user. It returns
// (nil, nil) when the token is unknown or expired: absence of a user, not an
// error. Expired session records are deleted on the spot (lazy expiry).
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Authenticate")
	defer span.End()

	if token == "" {
		return nil, nil
	}
	rec, found, err := s.Store.FindOne(ctx, store.Predicate{
		store.AttrType:  store.KindAuthSession,
		store.AttrToken: token,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	session, err := store.DecodeAuthSession(rec)
	if err != nil {
		s.Store.SkipMalformed(rec.ID, err)
		return nil, nil
	}
	if !session.Valid(s.Now().UTC()) {
		// Lazy expiry: remove the dead record, then report no user.
		if _, derr := s.Store.DeleteWhere(ctx, store.Predicate{
			store.AttrType:  store.KindAuthSession,
			store.AttrToken: token,
		}); derr != nil {
			return nil, derr
		}
		return nil, nil
	}

	userRec, found, err := s.Store.FindOne(ctx, store.Predicate{
		store.AttrType:   store.KindUser,
		store.AttrUserID: session.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	user, err := store.DecodeUser(userRec)
	if err != nil {
		s.Store.SkipMalformed(userRec.ID, err)
		return nil, nil
	}
	return &user, nil
}

// Logout deletes the session for the given token. Deleting an absent token
// is not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.Store.DeleteWhere(ctx, store.Predicate{
		store.AttrType:  store.KindAuthSession,
		store.AttrToken: token,
	})
	return err
}

// LogoutAll deletes every session belonging to a user and returns how many
// were removed.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	return s.Store.DeleteWhere(ctx, store.Predicate{
		store.AttrType:   store.KindAuthSession,
		store.AttrUserID: userID,
	})
}

// SweepExpired scans all auth sessions and deletes the expired ones,
// returning the number removed. Lazy expiry on read already guarantees
// correctness; the sweep only keeps the store small and is meant to run from
// a background ticker.
func (s *AuthService) SweepExpired(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "SweepExpired")
	defer span.End()

	recs, err := s.Store.FindAll(ctx, store.Predicate{store.AttrType: store.KindAuthSession})
	if err != nil {
		return 0, err
	}
	now := s.Now().UTC()
	removed := 0
	for _, rec := range recs {
		session, err := store.DecodeAuthSession(rec)
		if err != nil {
			s.Store.SkipMalformed(rec.ID, err)
			continue
		}
		if session.Valid(now) {
			continue
		}
		n, err := s.Store.DeleteWhere(ctx, store.Predicate{
			store.AttrType:  store.KindAuthSession,
			store.AttrToken: session.Token,
		})
		if err != nil {
			return removed, err
		}
		removed += n
	}
	span.SetAttributes(attribute.Int("sessions.removed", removed))
	return removed, nil
}

// issueSession mints a fresh unguessable token and persists the session.
func (s *AuthService) issueSession(ctx context.Context, userID string) (*domain.AuthSession, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	session := domain.AuthSession{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.Store.Put(ctx, store.EncodeAuthSession(session)); err != nil {
		return nil, err
	}
	return &session, nil
}

// newSessionToken returns 32 bytes of crypto/rand entropy, url-safe encoded.
func newSessionToken() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < 3 || n > 20 || !usernameRE.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < 6 || n > 100 {
		return ErrInvalidPassword
	}
	return nil
}
