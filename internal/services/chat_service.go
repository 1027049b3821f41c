// Package services – ChatService
//
// This file implements the ChatService, which manages the lifecycle of chat
// sessions: create, fetch, list, rename, and delete. Every operation is
// scoped to the owning user; a chat belonging to someone else is
// indistinguishable from a chat that does not exist.
//
// Renaming is a delete-and-reinsert of the session record because the chat
// name lives in the record id's sibling attributes and the store has no
// partial update. The two steps are not atomic; a crash in between loses the
// session metadata (messages survive, keyed by chat id).
package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/serenline/go-support-backend/internal/domain"
	"github.com/serenline/go-support-backend/internal/store"
)

// ChatService manages chat session records for one record store.
type ChatService struct {
	Store *store.Adapter

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewChatService constructs a ChatService on the given store.
func NewChatService(st *store.Adapter) *ChatService {
	return &ChatService{Store: st, Now: time.Now}
}

// Create opens a new chat session for the user with the default name.
func (s *ChatService) Create(ctx context.Context, userID string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	now := s.Now().UTC()
	session := domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      domain.DefaultChatName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Put(ctx, store.EncodeChatSession(session)); err != nil {
		return nil, err
	}
	return &session, nil
}

// Get fetches a chat session owned by the user. Missing and foreign chats
// both yield ErrChatNotFound.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.ChatSession, error) {
	rec, found, err := s.Store.FindOne(ctx, store.Predicate{
		store.AttrType:   store.KindChatSession,
		store.AttrChatID: chatID,
		store.AttrUserID: userID,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrChatNotFound
	}
	session, err := store.DecodeChatSession(rec)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns the user's chat sessions, most recently updated first.
// Records that fail to decode are logged and skipped rather than failing the
// whole listing.
func (s *ChatService) List(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	recs, err := s.Store.FindAll(ctx, store.Predicate{
		store.AttrType:   store.KindChatSession,
		store.AttrUserID: userID,
	})
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.ChatSession, 0, len(recs))
	for _, rec := range recs {
		session, err := store.DecodeChatSession(rec)
		if err != nil {
			s.Store.SkipMalformed(rec.ID, err)
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	span.SetAttributes(attribute.Int("chats.count", len(sessions)))
	return sessions, nil
}

// Rename changes a chat session's name, preserving its creation time and
// bumping UpdatedAt. An empty or blank name is replaced with "Untitled Chat".
func (s *ChatService) Rename(ctx context.Context, userID, chatID, name string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Rename")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("chat.id", chatID),
	)

	session, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled Chat"
	}
	session.Name = name
	session.UpdatedAt = s.Now().UTC()

	// Delete then re-add; see the package comment for the atomicity caveat.
	if err := s.Store.Docs().Delete(ctx, store.ChatSessionRecordID(chatID)); err != nil {
		return nil, err
	}
	if err := s.Store.Put(ctx, store.EncodeChatSession(*session)); err != nil {
		return nil, err
	}
	return session, nil
}

// Touch bumps a chat session's UpdatedAt so it sorts to the top of the
// listing after new activity.
func (s *ChatService) Touch(ctx context.Context, userID, chatID string) error {
	session, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return err
	}
	session.UpdatedAt = s.Now().UTC()
	return s.Store.Put(ctx, store.EncodeChatSession(*session))
}

// Delete removes a chat session and all of its messages. Deleting a chat
// that does not exist is a no-op; the operation is idempotent.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("chat.id", chatID),
	)

	if _, err := s.Store.DeleteWhere(ctx, store.Predicate{
		store.AttrType:   store.KindChatSession,
		store.AttrChatID: chatID,
		store.AttrUserID: userID,
	}); err != nil {
		return err
	}
	_, err := s.Store.DeleteWhere(ctx, store.Predicate{
		store.AttrType:   store.KindChatMessage,
		store.AttrChatID: chatID,
		store.AttrUserID: userID,
	})
	return err
}
