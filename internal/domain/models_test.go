package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAuthSession_Valid(t *testing.T) {
	exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := AuthSession{Token: "t", ExpiresAt: exp}

	if !s.Valid(exp.Add(-time.Second)) {
		t.Fatal("session invalid before expiry")
	}
	if s.Valid(exp) {
		t.Fatal("session valid at the expiry instant")
	}
	if s.Valid(exp.Add(time.Second)) {
		t.Fatal("session valid after expiry")
	}
}

func TestUser_PasswordHashNeverSerialized(t *testing.T) {
	u := User{ID: "u1", Username: "alice", PasswordHash: "bcrypt$secret"}
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "secret") || strings.Contains(string(raw), "password") {
		t.Fatalf("hash leaked: %s", raw)
	}
}

func TestChatMessage_AsMessage(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := map[string]struct {
		role      string
		wantActor string
	}{
		"user":         {RoleUser, ActorUser},
		"assistant":    {RoleAssistant, ActorAssistant},
		"unknown role": {"system", ActorAssistant},
	}
	for name, tc := range cases {
		m := ChatMessage{Role: tc.role, Content: "hi", Timestamp: ts}.AsMessage()
		if m.Actor != tc.wantActor {
			t.Errorf("%s: actor = %q, want %q", name, m.Actor, tc.wantActor)
		}
		if m.Payload != "hi" || !m.Timestamp.Equal(ts) {
			t.Errorf("%s: message = %+v", name, m)
		}
	}
}
