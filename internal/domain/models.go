// Package domain defines the entity model of the support backend. All four
// entity kinds live in one flat document collection; the types here are the
// decoded, strongly typed views of those records. Encoding to and from the
// collection's (id, document, attributes) triple is owned by internal/store.
package domain

import "time"

// Message roles as stored on chat message records.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation actors as exposed to callers of the history API.
const (
	ActorUser      = "user"
	ActorAssistant = "assistant"
)

// DefaultChatName is the placeholder name a chat session carries until the
// first user message triggers title generation.
const DefaultChatName = "New Chat"

// User is a registered account. Users are created once at registration and
// are immutable afterwards; the password hash never leaves the backend.
type User struct {
	ID           string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession is a bearer-token credential with an absolute expiry. A session
// is valid while the clock has not passed ExpiresAt; expired sessions are
// removed lazily on read or in bulk by the sweep.
type AuthSession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the session has not expired at the given instant.
func (s AuthSession) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// ChatSession is a named conversation thread owned by one user. Renames are
// modeled as delete-then-reinsert at the same record id, preserving CreatedAt
// and ownership while bumping UpdatedAt.
type ChatSession struct {
	ID        string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"chat_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is a single utterance within a chat session. Messages are never
// mutated; ordering within a chat is defined purely by Timestamp.
type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is the conversation-level view of a chat message: who spoke and
// what they said. It is what history listings return to the caller.
type Message struct {
	Actor     string    `json:"actor"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// AsMessage maps a stored chat message to its conversation view. Any role
// other than "user" is shown as the assistant, matching how unknown roles
// were rendered historically.
func (m ChatMessage) AsMessage() Message {
	actor := ActorAssistant
	if m.Role == RoleUser {
		actor = ActorUser
	}
	return Message{Actor: actor, Payload: m.Content, Timestamp: m.Timestamp}
}
