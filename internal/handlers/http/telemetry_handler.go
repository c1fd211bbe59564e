package http

import (
	"net/http"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

type TelemetryHandler struct {
	telemetry ports.TelemetryService
}

func NewTelemetryHandler(telemetry ports.TelemetryService) *TelemetryHandler {
	return &TelemetryHandler{telemetry: telemetry}
}

func (h *TelemetryHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/telemetry", h.Update)
	api.GET("/telemetry", h.Latest)
}

type TelemetryRequest struct {
	Lat        *float64 `json:"lat" binding:"required"`
	Lon        *float64 `json:"lon" binding:"required"`
	HeadingDeg *float64 `json:"headingDeg"`
	AccuracyM  *float64 `json:"accuracyM"`
}

// Update accepts a location fix from the active streamer's client.
func (h *TelemetryHandler) Update(c *gin.Context) {
	var req TelemetryRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := middleware.CurrentUser(c)
	t := domain.Telemetry{
		Lat:        *req.Lat,
		Lon:        *req.Lon,
		HeadingDeg: req.HeadingDeg,
		AccuracyM:  req.AccuracyM,
	}
	if err := h.telemetry.Update(c.Request.Context(), user, t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *TelemetryHandler) Latest(c *gin.Context) {
	t, err := h.telemetry.Latest(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"telemetry": t})
}
