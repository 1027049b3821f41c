package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/serenline/go-support-backend/internal/domain"
	"github.com/serenline/go-support-backend/internal/store"
)

// steppingClock returns a clock that advances one second per call, so every
// stored timestamp is distinct.
func steppingClock() func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newConversationFixture() (*ConversationService, *ChatService, *HistoryService, *fakeGenerator) {
	docs := store.NewMemoryStore()
	adapter := store.NewAdapter(docs, zerolog.Nop())
	chats := NewChatService(adapter)
	hist := NewHistoryService(adapter)
	hist.Now = steppingClock()
	gen := &fakeGenerator{reply: "a caring reply"}
	rag := NewRAGService(docs, &fakeEmbedder{vec: []float32{1, 0}}, gen)
	return NewConversationService(chats, hist, rag), chats, hist, gen
}

func TestSend_PersistsBothSidesOfTheTurn(t *testing.T) {
	ctx := context.Background()
	svc, chats, hist, _ := newConversationFixture()
	ch, _ := chats.Create(ctx, "u1")

	ex, err := svc.Send(ctx, "u1", ch.ID, "I feel overwhelmed")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ex.UserMessage.Content != "I feel overwhelmed" || ex.UserMessage.Role != domain.RoleUser {
		t.Fatalf("user message = %+v", ex.UserMessage)
	}
	if ex.Reply.Content != "a caring reply" || ex.Reply.Role != domain.RoleAssistant {
		t.Fatalf("reply = %+v", ex.Reply)
	}

	msgs, _ := hist.Load(ctx, "u1", ch.ID)
	if len(msgs) != 2 {
		t.Fatalf("history = %d messages, want 2", len(msgs))
	}
	if msgs[0].Actor != domain.ActorUser || msgs[1].Actor != domain.ActorAssistant {
		t.Fatalf("history order = %+v", msgs)
	}
}

func TestSend_FirstTurnTitlesTheChat(t *testing.T) {
	ctx := context.Background()
	svc, chats, _, gen := newConversationFixture()
	ch, _ := chats.Create(ctx, "u1")
	gen.reply = "Sleep Troubles"

	ex, err := svc.Send(ctx, "u1", ch.ID, "I cannot sleep")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ex.ChatName != "Sleep Troubles" {
		t.Fatalf("chat name = %q", ex.ChatName)
	}
	got, _ := chats.Get(ctx, "u1", ch.ID)
	if got.Name != "Sleep Troubles" {
		t.Fatalf("persisted name = %q", got.Name)
	}
}

func TestSend_SecondTurnKeepsTheName(t *testing.T) {
	ctx := context.Background()
	svc, chats, _, gen := newConversationFixture()
	ch, _ := chats.Create(ctx, "u1")

	gen.reply = "First Title"
	_, _ = svc.Send(ctx, "u1", ch.ID, "first")

	gen.reply = "Second Title"
	ex, err := svc.Send(ctx, "u1", ch.ID, "second")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ex.ChatName != "First Title" {
		t.Fatalf("second turn renamed the chat: %q", ex.ChatName)
	}
	got, _ := chats.Get(ctx, "u1", ch.ID)
	if got.Name != "First Title" {
		t.Fatalf("persisted name = %q", got.Name)
	}
}

func TestSend_RenamedChatIsNeverRetitled(t *testing.T) {
	ctx := context.Background()
	svc, chats, _, gen := newConversationFixture()
	ch, _ := chats.Create(ctx, "u1")
	_, _ = chats.Rename(ctx, "u1", ch.ID, "My Space")

	gen.reply = "Should Not Apply"
	ex, err := svc.Send(ctx, "u1", ch.ID, "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ex.ChatName != "My Space" {
		t.Fatalf("manually named chat was retitled: %q", ex.ChatName)
	}
}

func TestSend_UnknownChat(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newConversationFixture()

	if _, err := svc.Send(ctx, "u1", "ghost", "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("err = %v, want ErrChatNotFound", err)
	}
}

func TestSend_ForeignChat(t *testing.T) {
	ctx := context.Background()
	svc, chats, _, _ := newConversationFixture()
	ch, _ := chats.Create(ctx, "owner")

	if _, err := svc.Send(ctx, "intruder", ch.ID, "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("err = %v, want ErrChatNotFound", err)
	}
}

func TestSend_BlankContent(t *testing.T) {
	ctx := context.Background()
	svc, chats, _, _ := newConversationFixture()
	ch, _ := chats.Create(ctx, "u1")

	if _, err := svc.Send(ctx, "u1", ch.ID, "  "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

// End-to-end over the in-memory store: register, open a chat, send a message
// while the model is down, and confirm the fixed fallback lands in history
// behind the user's own words.
func TestConversation_ModelOutageStillAnswers(t *testing.T) {
	ctx := context.Background()

	docs := store.NewMemoryStore()
	adapter := store.NewAdapter(docs, zerolog.Nop())

	auth := NewAuthService(adapter)
	auth.Hasher = plainHasher{}
	chats := NewChatService(adapter)
	hist := NewHistoryService(adapter)
	hist.Now = steppingClock()
	gen := &fakeGenerator{err: errors.New("model down")}
	rag := NewRAGService(docs, &fakeEmbedder{err: errors.New("embedder down")}, gen)
	conv := NewConversationService(chats, hist, rag)

	user, session, err := auth.Register(ctx, "alice", "secret1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	authed, err := auth.Authenticate(ctx, session.Token)
	if err != nil || authed == nil || authed.ID != user.ID {
		t.Fatalf("Authenticate = %+v, %v", authed, err)
	}

	ch, err := chats.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ex, err := conv.Send(ctx, user.ID, ch.ID, "I need someone to talk to")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ex.Reply.Content != FallbackResponse {
		t.Fatalf("reply = %q, want the fixed fallback", ex.Reply.Content)
	}
	// Title generation also failed; the fallback title comes from the message.
	if ex.ChatName != "I Need Someone To..." {
		t.Fatalf("chat name = %q", ex.ChatName)
	}

	msgs, err := hist.Load(ctx, user.ID, ch.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("history = %d messages, want 2", len(msgs))
	}
	if msgs[0].Payload != "I need someone to talk to" || msgs[1].Payload != FallbackResponse {
		t.Fatalf("history = %+v", msgs)
	}
}
