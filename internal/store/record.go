// Package store implements the persistence layer of the support backend on
// top of a single schema-less document collection.
//
// Every entity (users, auth sessions, chat sessions, chat messages, and the
// reference documents used for retrieval) is encoded into one flat namespace
// of Records. A Record is the uniform (id, document, attributes) triple the
// collection understands; a mandatory "type" attribute discriminates the
// entity kind and well-known id prefixes keep the kinds from colliding.
//
// This file owns the codec: the discriminator scheme, the id conventions,
// and the pure Encode/Decode functions for each kind. Decoding is defensive:
// a record with a missing or unrecognized discriminator, or one whose
// attributes do not satisfy the kind's schema, yields ErrMalformedRecord
// rather than a partially populated entity.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/serenline/go-support-backend/internal/domain"
)

// ErrMalformedRecord is returned when a record cannot be decoded into the
// requested entity kind. Listing operations log and skip such records; they
// must never abort a scan.
var ErrMalformedRecord = errors.New("malformed record")

// Record kinds, stored under the "type" attribute.
const (
	KindUser        = "user"
	KindAuthSession = "user_session"
	KindChatSession = "session"
	KindChatMessage = "chat"
	KindReference   = "reference"
)

// Attribute keys shared across record kinds.
const (
	AttrType      = "type"
	AttrUserID    = "user_id"
	AttrUsername  = "username"
	AttrPassword  = "password_hash"
	AttrEmail     = "email"
	AttrToken     = "session_token"
	AttrExpiry    = "expiry"
	AttrChatID    = "chat_id"
	AttrChatName  = "chat_name"
	AttrRole      = "role"
	AttrTimestamp = "timestamp"
	AttrCreatedAt = "created_at"
	AttrUpdatedAt = "updated_at"
)

// Id prefixes per kind. Chat messages use a bare UUID.
const (
	userIDPrefix    = "user_"
	tokenIDPrefix   = "session_token_"
	sessionIDPrefix = "session_"
)

// timeLayout is a fixed-width UTC ISO-8601 layout. The fixed fractional part
// keeps lexicographic order identical to chronological order, which the
// message timeline relies on.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Record is the uniform unit stored in the document collection. Document is
// human-readable text used only for embedding and search; Attributes carry
// the entity payload. Embedding is populated only for reference documents.
type Record struct {
	ID         string
	Document   string
	Attributes map[string]any
	Embedding  []float32
}

// Predicate is a conjunction of exact-match attribute equalities. An empty
// predicate matches every record.
type Predicate map[string]string

// FormatTime renders t in the collection's canonical timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a canonical timestamp, accepting plain RFC 3339 as a
// fallback for records written by older ingests.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// UserRecordID returns the collection id for a user entity.
func UserRecordID(userID string) string { return userIDPrefix + userID }

// AuthSessionRecordID returns the collection id for an auth session entity.
func AuthSessionRecordID(token string) string { return tokenIDPrefix + token }

// ChatSessionRecordID returns the collection id for a chat session entity.
func ChatSessionRecordID(chatID string) string { return sessionIDPrefix + chatID }

// Kind extracts the type discriminator of a record. A missing or non-string
// discriminator is a malformed record.
func Kind(rec Record) (string, error) {
	kind, ok := stringAttr(rec.Attributes, AttrType)
	if !ok {
		return "", fmt.Errorf("%w: missing %q attribute (id=%s)", ErrMalformedRecord, AttrType, rec.ID)
	}
	switch kind {
	case KindUser, KindAuthSession, KindChatSession, KindChatMessage, KindReference:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q (id=%s)", ErrMalformedRecord, kind, rec.ID)
	}
}

//
// User
//

// EncodeUser encodes a user entity. The document text is descriptive only;
// the password hash lives in the attributes and is never embedded.
func EncodeUser(u domain.User) Record {
	attrs := map[string]any{
		AttrType:      KindUser,
		AttrUserID:    u.ID,
		AttrUsername:  u.Username,
		AttrPassword:  u.PasswordHash,
		AttrCreatedAt: FormatTime(u.CreatedAt),
	}
	if u.Email != "" {
		attrs[AttrEmail] = u.Email
	}
	return Record{
		ID:         UserRecordID(u.ID),
		Document:   "User profile: " + u.Username,
		Attributes: attrs,
	}
}

// DecodeUser decodes a user record.
func DecodeUser(rec Record) (domain.User, error) {
	if err := requireKind(rec, KindUser); err != nil {
		return domain.User{}, err
	}
	id, err := requiredString(rec, AttrUserID)
	if err != nil {
		return domain.User{}, err
	}
	username, err := requiredString(rec, AttrUsername)
	if err != nil {
		return domain.User{}, err
	}
	hash, err := requiredString(rec, AttrPassword)
	if err != nil {
		return domain.User{}, err
	}
	createdAt, err := requiredTime(rec, AttrCreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	email, _ := stringAttr(rec.Attributes, AttrEmail)
	return domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		CreatedAt:    createdAt,
	}, nil
}

//
// Auth session
//

// EncodeAuthSession encodes a bearer-token session. The token doubles as the
// id suffix so there can be at most one live record per token.
func EncodeAuthSession(s domain.AuthSession) Record {
	return Record{
		ID:       AuthSessionRecordID(s.Token),
		Document: "Auth session for user " + s.UserID,
		Attributes: map[string]any{
			AttrType:      KindAuthSession,
			AttrUserID:    s.UserID,
			AttrToken:     s.Token,
			AttrExpiry:    FormatTime(s.ExpiresAt),
			AttrCreatedAt: FormatTime(s.CreatedAt),
		},
	}
}

// DecodeAuthSession decodes an auth session record.
func DecodeAuthSession(rec Record) (domain.AuthSession, error) {
	if err := requireKind(rec, KindAuthSession); err != nil {
		return domain.AuthSession{}, err
	}
	userID, err := requiredString(rec, AttrUserID)
	if err != nil {
		return domain.AuthSession{}, err
	}
	token, err := requiredString(rec, AttrToken)
	if err != nil {
		return domain.AuthSession{}, err
	}
	expiry, err := requiredTime(rec, AttrExpiry)
	if err != nil {
		return domain.AuthSession{}, err
	}
	createdAt, err := requiredTime(rec, AttrCreatedAt)
	if err != nil {
		return domain.AuthSession{}, err
	}
	return domain.AuthSession{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiry,
		CreatedAt: createdAt,
	}, nil
}

//
// Chat session
//

// EncodeChatSession encodes a chat session entity.
func EncodeChatSession(s domain.ChatSession) Record {
	return Record{
		ID:       ChatSessionRecordID(s.ID),
		Document: "Chat session: " + s.Name,
		Attributes: map[string]any{
			AttrType:      KindChatSession,
			AttrChatID:    s.ID,
			AttrUserID:    s.UserID,
			AttrChatName:  s.Name,
			AttrCreatedAt: FormatTime(s.CreatedAt),
			AttrUpdatedAt: FormatTime(s.UpdatedAt),
		},
	}
}

// DecodeChatSession decodes a chat session record.
func DecodeChatSession(rec Record) (domain.ChatSession, error) {
	if err := requireKind(rec, KindChatSession); err != nil {
		return domain.ChatSession{}, err
	}
	chatID, err := requiredString(rec, AttrChatID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	userID, err := requiredString(rec, AttrUserID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	createdAt, err := requiredTime(rec, AttrCreatedAt)
	if err != nil {
		return domain.ChatSession{}, err
	}
	updatedAt, err := requiredTime(rec, AttrUpdatedAt)
	if err != nil {
		return domain.ChatSession{}, err
	}
	name, ok := stringAttr(rec.Attributes, AttrChatName)
	if !ok || name == "" {
		name = "Untitled Chat"
	}
	return domain.ChatSession{
		ID:        chatID,
		UserID:    userID,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

//
// Chat message
//

// EncodeChatMessage encodes a chat message entity. The message content is the
// record's document text.
func EncodeChatMessage(m domain.ChatMessage) Record {
	return Record{
		ID:       m.ID,
		Document: m.Content,
		Attributes: map[string]any{
			AttrType:      KindChatMessage,
			AttrChatID:    m.ChatID,
			AttrUserID:    m.UserID,
			AttrRole:      m.Role,
			AttrTimestamp: FormatTime(m.Timestamp),
		},
	}
}

// DecodeChatMessage decodes a chat message record.
func DecodeChatMessage(rec Record) (domain.ChatMessage, error) {
	if err := requireKind(rec, KindChatMessage); err != nil {
		return domain.ChatMessage{}, err
	}
	chatID, err := requiredString(rec, AttrChatID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	userID, err := requiredString(rec, AttrUserID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	role, err := requiredString(rec, AttrRole)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	ts, err := requiredTime(rec, AttrTimestamp)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return domain.ChatMessage{
		ID:        rec.ID,
		ChatID:    chatID,
		UserID:    userID,
		Role:      role,
		Content:   rec.Document,
		Timestamp: ts,
	}, nil
}

//
// Attribute helpers
//

// stringAttr reads a string attribute. JSON round-trips may surface values as
// any scalar, so only genuine strings are accepted.
func stringAttr(attrs map[string]any, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func requireKind(rec Record, want string) error {
	kind, err := Kind(rec)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: kind %q where %q expected (id=%s)", ErrMalformedRecord, kind, want, rec.ID)
	}
	return nil
}

func requiredString(rec Record, key string) (string, error) {
	s, ok := stringAttr(rec.Attributes, key)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: missing %q attribute (id=%s)", ErrMalformedRecord, key, rec.ID)
	}
	return s, nil
}

func requiredTime(rec Record, key string) (time.Time, error) {
	s, err := requiredString(rec, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad %q timestamp %q (id=%s)", ErrMalformedRecord, key, s, rec.ID)
	}
	return t, nil
}
