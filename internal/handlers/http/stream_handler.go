package http

import (
	"net/http"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/internal/infrastructure/middleware"
	apperrors "hudcast/pkg/errors"

	"github.com/gin-gonic/gin"
)

// StreamHandler exposes the ownership state machine over HTTP. The state
// returned by every mutating endpoint is the authoritative post-mutation
// record; clients overwrite their local copy with it.
type StreamHandler struct {
	session ports.StreamSessionService
}

func NewStreamHandler(session ports.StreamSessionService) *StreamHandler {
	return &StreamHandler{session: session}
}

func (h *StreamHandler) SetupRoutes(api *gin.RouterGroup) {
	stream := api.Group("/stream")
	{
		stream.GET("", h.GetState)
		stream.POST("/adopt", h.Adopt)
		stream.POST("/heartbeat", h.Heartbeat)
		stream.POST("/live", h.SetLive)
		stream.POST("/release", h.Release)
		stream.POST("/request", h.RequestTakeover)
		stream.GET("/request", h.GetPendingRequest)
		stream.POST("/respond", h.RespondToRequest)
	}
}

// GetState is the polling endpoint; clients call it every few seconds and
// treat the response as the source of truth.
func (h *StreamHandler) GetState(c *gin.Context) {
	state, err := h.session.State(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *StreamHandler) Adopt(c *gin.Context) {
	user := middleware.CurrentUser(c)

	state, err := h.session.Adopt(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *StreamHandler) Heartbeat(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := h.session.Heartbeat(c.Request.Context(), user); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *StreamHandler) SetLive(c *gin.Context) {
	var req struct {
		IsLive *bool `json:"isLive" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	state, err := h.session.SetLive(c.Request.Context(), user, *req.IsLive)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *StreamHandler) Release(c *gin.Context) {
	user := middleware.CurrentUser(c)

	state, err := h.session.Release(c.Request.Context(), user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *StreamHandler) RequestTakeover(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := h.session.RequestTakeover(c.Request.Context(), user); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "requested"})
}

// GetPendingRequest lets the owner (or an admin) poll for an unanswered
// takeover request, since the realtime nudge may never arrive.
func (h *StreamHandler) GetPendingRequest(c *gin.Context) {
	user := middleware.CurrentUser(c)

	state, err := h.session.State(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if !state.OwnedBy(user.ID) && !user.IsAdmin() {
		fail(c, apperrors.Forbidden("only the active streamer can view the pending request"))
		return
	}

	pending, err := h.session.PendingRequest(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pendingRequest": pending})
}

func (h *StreamHandler) RespondToRequest(c *gin.Context) {
	var req struct {
		Accept   *bool  `json:"accept" binding:"required"`
		ToUserID string `json:"toUserId" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	state, err := h.session.RespondToRequest(c.Request.Context(), user, *req.Accept, domain.UserID(req.ToUserID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}
