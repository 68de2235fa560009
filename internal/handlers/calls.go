package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mentorlink/internal/middleware"
	"mentorlink/internal/services"
	"mentorlink/internal/utils"
)

// CallHandler serves call history over REST. Live call signaling happens
// on the websocket; these endpoints only read the persisted call logs.
type CallHandler struct {
	callLogs *services.CallLogService
}

func NewCallHandler(callLogs *services.CallLogService) *CallHandler {
	return &CallHandler{callLogs: callLogs}
}

// List returns the authenticated user's call history, newest first.
func (h *CallHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	page := parseInt64(c.DefaultQuery("page", "1"), 1)
	limit := parseInt64(c.DefaultQuery("limit", "20"), 20)
	if limit > 100 {
		limit = 100
	}

	records, total, err := h.callLogs.ListForUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load call history")
		return
	}

	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}

	utils.SuccessResponseWithMeta(c, records, &utils.Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}

// ListForChat returns the call history of one conversation.
func (h *CallHandler) ListForChat(c *gin.Context) {
	chatKey := c.Param("chat_key")
	limit := parseInt64(c.DefaultQuery("limit", "50"), 50)

	records, err := h.callLogs.ListForChat(c.Request.Context(), chatKey, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load call history")
		return
	}

	utils.SuccessResponse(c, records)
}

// Get returns a single call log by call ID.
func (h *CallHandler) Get(c *gin.Context) {
	callID := c.Param("call_id")

	record, err := h.callLogs.FindByCallID(c.Request.Context(), callID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load call")
		return
	}
	if record == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Call not found")
		return
	}

	utils.SuccessResponse(c, record)
}

func parseInt64(s string, fallback int64) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
