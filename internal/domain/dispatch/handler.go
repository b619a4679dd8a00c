package dispatch

import (
	"log/slog"
	"net/http"

	"pushfan/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the dispatch domain.
type Handler struct {
	service *Service
}

// NewHandler creates a new dispatch handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Dispatch handles POST /api/v1/dispatch
// Fans out synchronously and returns the per-recipient results.
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.Dispatch(c.Request.Context(), &req)
	if err != nil {
		slog.Error("dispatch failed",
			"error", err,
			"channel", req.Channel,
			"recipients", len(req.Recipients),
		)
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, resp)
}

// DispatchAsync handles POST /api/v1/dispatch/async
// Enqueues a dispatch job for async processing and returns 202 Accepted.
func (h *Handler) DispatchAsync(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	jobID := uuid.New().String()
	resp, err := h.service.Enqueue(c.Request.Context(), jobID, &req)
	if err != nil {
		slog.Error("enqueue dispatch failed",
			"error", err,
			"channel", req.Channel,
			"recipients", len(req.Recipients),
		)
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusAccepted, resp)
}

// Channels handles GET /api/v1/channels
func (h *Handler) Channels(c *gin.Context) {
	common.Success(c, http.StatusOK, gin.H{"channels": h.service.Channels()})
}

// RegisterRoutes registers dispatch routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/dispatch", h.Dispatch)
	rg.POST("/dispatch/async", h.DispatchAsync)
	rg.GET("/channels", h.Channels)
}
