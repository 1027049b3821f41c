// Package services – HistoryService
//
// This file implements the HistoryService, which appends and loads chat
// message records. Messages are stored individually under random ids and
// reassembled into chronological order at read time by their timestamp
// attribute.
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

// HistoryService persists and reads chat messages.
type HistoryService struct {
	Store *store.Adapter

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewHistoryService constructs a HistoryService on the given store.
func NewHistoryService(st *store.Adapter) *HistoryService {
	return &HistoryService{Store: st, Now: time.Now}
}

// Append stores one message in a chat and returns the persisted record.
// The content must be non-blank; role is RoleUser or RoleAssistant.
func (s *HistoryService) Append(ctx context.Context, userID, chatID, role, content string) (*domain.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: s.Now().UTC(),
	}
	if err := s.Store.Put(ctx, store.EncodeChatMessage(msg)); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Load returns a chat's messages in chronological order. An unknown chat id
// yields an empty history, not an error; ownership enforcement is the
// caller's job via ChatService.Get.
func (s *HistoryService) Load(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.String("chat.id", chatID))

	recs, err := s.Store.FindAll(ctx, store.Predicate{
		store.AttrType:   store.KindChatMessage,
		store.AttrChatID: chatID,
		store.AttrUserID: userID,
	})
	if err != nil {
		return nil, err
	}
	msgs := make([]domain.ChatMessage, 0, len(recs))
	for _, rec := range recs {
		msg, err := store.DecodeChatMessage(rec)
		if err != nil {
			s.Store.SkipMalformed(rec.ID, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].ID < msgs[j].ID
	})

	out := make([]domain.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.AsMessage()
	}
	span.SetAttributes(attribute.Int("messages.count", len(out)))
	return out, nil
}

// Count reports how many messages a chat holds.
func (s *HistoryService) Count(ctx context.Context, userID, chatID string) (int64, error) {
	return s.Store.Docs().Count(ctx, store.Predicate{
		store.AttrType:   store.KindChatMessage,
		store.AttrChatID: chatID,
		store.AttrUserID: userID,
	})
}
