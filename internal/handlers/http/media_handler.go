package http

import (
	"net/http"

	"hudcast/internal/core/ports"
	"hudcast/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// MediaHandler hands out signed join tokens for the external media
// server. Publish rights follow seat ownership.
type MediaHandler struct {
	media ports.MediaTokenService
}

func NewMediaHandler(media ports.MediaTokenService) *MediaHandler {
	return &MediaHandler{media: media}
}

func (h *MediaHandler) SetupRoutes(api *gin.RouterGroup) {
	media := api.Group("/media")
	{
		media.POST("/streamer-token", h.StreamerToken)
		media.POST("/viewer-token", h.ViewerToken)
	}
}

func (h *MediaHandler) StreamerToken(c *gin.Context) {
	user := middleware.CurrentUser(c)

	token, url, err := h.media.StreamerToken(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "url": url})
}

func (h *MediaHandler) ViewerToken(c *gin.Context) {
	user := middleware.CurrentUser(c)

	token, url, err := h.media.ViewerToken(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "url": url})
}
