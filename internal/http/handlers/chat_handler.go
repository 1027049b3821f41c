// Chat HTTP handlers.
//
// This file exposes REST endpoints for chat session resources:
//   - POST   /chats            (create)
//   - GET    /chats            (list, most recently updated first)
//   - PUT    /chats/{id}/name  (rename)
//   - DELETE /chats/{id}       (delete chat and its messages)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/serenline/go-support-backend/internal/domain"
	"github.com/serenline/go-support-backend/internal/http/middleware"
	"github.com/serenline/go-support-backend/internal/services"
	"github.com/serenline/go-support-backend/internal/store"
)

// ChatService defines the chat session lifecycle operations consumed by HTTP
// handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type ChatService interface {
	// Create starts a new chat session with the default name.
	Create(ctx context.Context, userID string) (*domain.ChatSession, error)
	// List returns the user's chat sessions, most recently updated first.
	List(ctx context.Context, userID string) ([]domain.ChatSession, error)
	// Rename changes a chat session's name.
	Rename(ctx context.Context, userID, chatID, name string) (*domain.ChatSession, error)
	// Delete removes a chat session and its messages; unknown ids are a no-op.
	Delete(ctx context.Context, userID, chatID string) error
}

// ConversationService runs one conversational turn.
type ConversationService interface {
	Send(ctx context.Context, userID, chatID, content string) (*services.Exchange, error)
}

// HistoryService reads a chat's message history.
type HistoryService interface {
	Load(ctx context.Context, userID, chatID string) ([]domain.Message, error)
}

// Handlers groups the HTTP endpoints for auth, chats, and messages. It
// depends on abstract service interfaces to keep transport concerns separate
// from business logic.
type Handlers struct {
	authSvc AuthService
	chatSvc ChatService
	convSvc ConversationService
	histSvc HistoryService
}

// New constructs a Handlers instance bound to the given services.
func New(authSvc AuthService, chatSvc ChatService, convSvc ConversationService, histSvc HistoryService) *Handlers {
	return &Handlers{authSvc: authSvc, chatSvc: chatSvc, convSvc: convSvc, histSvc: histSvc}
}

// userID extracts the authenticated user id set by the session middleware.
func userID(c *gin.Context) string {
	if v, ok := c.Get(middleware.CtxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RenameChatRequest is the JSON payload for renaming a chat session.
type RenameChatRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// CreateChat starts a new chat session for the current user.
func (h *Handlers) CreateChat(c *gin.Context) {
	ch, err := h.chatSvc.Create(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, ch)
}

// ListChats returns the user's chat sessions, most recently updated first.
func (h *Handlers) ListChats(c *gin.Context) {
	chats, err := h.chatSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"chats": chats})
}

// RenameChat updates the name of a chat session owned by the current user.
func (h *Handlers) RenameChat(c *gin.Context) {
	chatID := c.Param("id")

	var req RenameChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-255 chars)")
		return
	}

	if _, err := h.chatSvc.Rename(c.Request.Context(), userID(c), chatID, req.Name); err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		case errors.Is(err, store.ErrStoreUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// DeleteChat removes a chat session and its messages. Deleting an unknown
// chat still returns 204; the operation is idempotent.
func (h *Handlers) DeleteChat(c *gin.Context) {
	chatID := c.Param("id")
	if err := h.chatSvc.Delete(c.Request.Context(), userID(c), chatID); err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
