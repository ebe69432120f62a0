package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resilientsys/degrade/pkg/degradation"
	"github.com/resilientsys/degrade/pkg/logging"
)

// Handlers exposes the degradation controller over HTTP.
type Handlers struct {
	controller *degradation.AIController
	logger     *logging.Logger
}

// NewHandlers creates the API handler set for a controller.
func NewHandlers(controller *degradation.AIController, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Handlers{
		controller: controller,
		logger:     logger,
	}
}

// StatusDTO is the controller state returned by GET /api/v1/status.
type StatusDTO struct {
	Service         string    `json:"service"`
	Level           string    `json:"level"`
	Overridden      bool      `json:"overridden"`
	Uptime          string    `json:"uptime"`
	LastHealthCheck time.Time `json:"last_health_check"`
	FailureRate     float64   `json:"failure_rate"`
	TotalChecks     int64     `json:"total_checks"`
	FailedChecks    int64     `json:"failed_checks"`
	CurrentModel    string    `json:"current_model"`
	MaxTokens       int       `json:"max_tokens"`
}

// OverrideRequest represents a manual level override
type OverrideRequest struct {
	Level string `json:"level" binding:"required"`
}

func (h *Handlers) statusDTO() StatusDTO {
	snapshot := h.controller.Metrics()
	return StatusDTO{
		Service:         snapshot.Service,
		Level:           snapshot.Level.String(),
		Overridden:      snapshot.Overridden,
		Uptime:          snapshot.Uptime.String(),
		LastHealthCheck: snapshot.LastHealthCheck,
		FailureRate:     snapshot.FailureRate,
		TotalChecks:     snapshot.TotalChecks,
		FailedChecks:    snapshot.FailedChecks,
		CurrentModel:    h.controller.CurrentModel(),
		MaxTokens:       h.controller.MaxTokens(),
	}
}

// GetStatus handles GET /api/v1/status
func (h *Handlers) GetStatus(c *gin.Context) {
	SuccessResponse(c, h.statusDTO())
}

// SetOverride handles PUT /api/v1/override
func (h *Handlers) SetOverride(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestResponse(c, "level is required")
		return
	}

	level, err := degradation.ParseLevel(req.Level)
	if err != nil {
		BadRequestResponse(c, err.Error())
		return
	}

	h.controller.Override(&level)
	SuccessResponse(c, h.statusDTO())
}

// ClearOverride handles DELETE /api/v1/override
func (h *Handlers) ClearOverride(c *gin.Context) {
	h.controller.Override(nil)
	SuccessResponse(c, h.statusDTO())
}

// ForceCheck handles POST /api/v1/check and runs one immediate health check
func (h *Handlers) ForceCheck(c *gin.Context) {
	level := h.controller.CheckHealth(c.Request.Context())

	h.logger.Info("On-demand health check",
		"service", h.controller.Name(),
		"level", level.String(),
		"request_id", requestID(c),
	)
	SuccessResponse(c, h.statusDTO())
}

// Healthz handles GET /healthz for the control plane itself
func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}
