package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentorlink/internal/middleware"
	"mentorlink/internal/signaling"
	"mentorlink/internal/utils"
)

// ChatHandler serves message history and read state over REST. Live
// delivery and receipts go through the websocket message router; MarkRead
// here shares the router so receipts still fan out to connected peers.
type ChatHandler struct {
	router *signaling.MessageRouter
}

func NewChatHandler(router *signaling.MessageRouter) *ChatHandler {
	return &ChatHandler{router: router}
}

// Send delivers a message through the router, fanning out to connected
// room members the same way a websocket chat-message event would.
func (h *ChatHandler) Send(c *gin.Context) {
	userID := middleware.UserID(c)

	var payload signaling.ChatMessagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	message, err := h.router.Send(c.Request.Context(), userID, payload)
	if err != nil {
		switch {
		case errors.Is(err, signaling.ErrMissingField):
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, signaling.ErrNotAMember), errors.Is(err, signaling.ErrInvalidRecipient):
			utils.ErrorResponse(c, http.StatusForbidden, err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to send message")
		}
		return
	}

	utils.SuccessResponse(c, message)
}

// History returns the most recent messages of a conversation in
// chronological order.
func (h *ChatHandler) History(c *gin.Context) {
	chatKey := c.Param("chat_key")
	limit := parseInt64(c.DefaultQuery("limit", "50"), 50)
	if limit > 200 {
		limit = 200
	}

	messages, err := h.router.History(c.Request.Context(), chatKey, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	utils.SuccessResponse(c, messages)
}

// MarkRead flips the caller's unread messages in the conversation and
// broadcasts the read receipt.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := middleware.UserID(c)
	chatKey := c.Param("chat_key")

	if err := h.router.MarkRead(c.Request.Context(), userID, chatKey); err != nil {
		if errors.Is(err, signaling.ErrMissingField) {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to mark messages read")
		return
	}

	utils.SuccessResponse(c, gin.H{"chat_key": chatKey})
}

// UnreadCount returns how many messages the caller has not read in the
// conversation.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID := middleware.UserID(c)
	chatKey := c.Param("chat_key")

	count, err := h.router.UnreadCount(c.Request.Context(), chatKey, userID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to count unread messages")
		return
	}

	utils.SuccessResponse(c, gin.H{"chat_key": chatKey, "unread": count})
}
