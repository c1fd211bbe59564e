package http

import (
	"net/http"
	"strconv"

	"hudcast/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chat ports.ChatService
}

func NewChatHandler(chat ports.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// SetupRoutes registers the authenticated chat endpoints.
func (h *ChatHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/chat/messages", h.History)
}

// History returns the latest chat messages in ascending order. The
// service clamps the limit (default 50, max 100).
func (h *ChatHandler) History(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	msgs, err := h.chat.History(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
