// Package services – ConversationService
//
// This file implements ConversationService, the orchestrator behind "send a
// message": it verifies chat ownership, persists the user's message, titles
// the chat on the first turn, obtains the assistant reply from the retrieval
// pipeline, and persists that reply.
//
// The user message is stored before the reply is generated, so a generation
// failure still leaves the user's words in the history alongside the fixed
// fallback reply.
package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/serenline/go-support-backend/internal/domain"
)

// Exchange is the outcome of one conversational turn.
type Exchange struct {
	// UserMessage is the persisted copy of what the user sent.
	UserMessage domain.ChatMessage

	// Reply is the persisted assistant response.
	Reply domain.ChatMessage

	// ChatName is the chat's name after the turn; on the first turn it is
	// the freshly generated title.
	ChatName string
}

// ConversationService coordinates chats, history, and the retrieval pipeline.
type ConversationService struct {
	Chats   *ChatService
	History *HistoryService
	RAG     *RAGService
}

// NewConversationService wires the three collaborators.
func NewConversationService(chats *ChatService, history *HistoryService, rag *RAGService) *ConversationService {
	return &ConversationService{Chats: chats, History: history, RAG: rag}
}

// Send runs one conversational turn in the given chat. The chat must exist
// and belong to the user; the content must be non-blank.
func (s *ConversationService) Send(ctx context.Context, userID, chatID, content string) (*Exchange, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Send")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("chat.id", chatID),
	)

	chat, err := s.Chats.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	// First-turn detection happens before the user message is stored.
	count, err := s.History.Count(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	firstTurn := count == 0 && chat.Name == domain.DefaultChatName

	userMsg, err := s.History.Append(ctx, userID, chatID, domain.RoleUser, content)
	if err != nil {
		return nil, err
	}

	chatName := chat.Name
	if firstTurn {
		title := s.RAG.TitleFor(ctx, content)
		renamed, err := s.Chats.Rename(ctx, userID, chatID, title)
		if err != nil {
			return nil, err
		}
		chatName = renamed.Name
		span.SetAttributes(attribute.Bool("chat.titled", true))
	} else if err := s.Chats.Touch(ctx, userID, chatID); err != nil {
		return nil, err
	}

	reply := s.RAG.Respond(ctx, content)
	replyMsg, err := s.History.Append(ctx, userID, chatID, domain.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}

	return &Exchange{
		UserMessage: *userMsg,
		Reply:       *replyMsg,
		ChatName:    chatName,
	}, nil
}
