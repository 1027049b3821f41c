// Message HTTP handlers.
//
// This file exposes the message endpoints of a chat session:
//   - GET  /chats/{id}/messages  (chronological history, optional ?limit)
//   - POST /chats/{id}/messages  (one conversational turn)
//
// A POST persists the user's message, generates the assistant reply through
// the retrieval pipeline, and returns both together with the chat's current
// name (the first turn titles the chat).
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/serenline/go-support-backend/internal/domain"
	"github.com/serenline/go-support-backend/internal/services"
	"github.com/serenline/go-support-backend/internal/store"
	"github.com/serenline/go-support-backend/internal/utils"
)

// PostMessageRequest is the JSON payload for sending a message.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostMessageResponse carries the persisted turn and the chat's name after
// it, so clients can refresh their sidebar without a second round-trip.
type PostMessageResponse struct {
	UserMessage domain.ChatMessage `json:"user_message"`
	Reply       domain.ChatMessage `json:"reply"`
	ChatName    string             `json:"chat_name"`
}

// ListMessages returns a chat's history in chronological order. An optional
// `limit` query parameter keeps only the most recent messages.
func (h *Handlers) ListMessages(c *gin.Context) {
	chatID := c.Param("id")

	msgs, err := h.histSvc.Load(c.Request.Context(), userID(c), chatID)
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	if limit := utils.AtoiDefault(c.Query("limit"), 0); limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	ok(c, http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage runs one conversational turn in the chat.
func (h *Handlers) PostMessage(c *gin.Context) {
	chatID := c.Param("id")

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	exchange, err := h.convSvc.Send(c.Request.Context(), userID(c), chatID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case errors.Is(err, store.ErrStoreUnavailable):
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "record store unavailable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, PostMessageResponse{
		UserMessage: exchange.UserMessage,
		Reply:       exchange.Reply,
		ChatName:    exchange.ChatName,
	})
}
