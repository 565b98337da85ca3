package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dropship-service/internal/services"
)

// TrackingHandler exposes consolidated order tracking
type TrackingHandler struct {
	service *services.TrackingService
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(service *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// Track returns the consolidated tracking view for one order
func (h *TrackingHandler) Track(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	tracking, err := h.service.TrackOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tracking})
}

// BulkTrack resolves tracking for a batch of orders
func (h *TrackingHandler) BulkTrack(c *gin.Context) {
	var req struct {
		OrderIDs []uuid.UUID `json:"orderIds" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.service.BulkTrack(c.Request.Context(), req.OrderIDs)
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// UpdateTrackingNumber attaches a tracking number to a supplier sub-order
func (h *TrackingHandler) UpdateTrackingNumber(c *gin.Context) {
	subOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sub-order id"})
		return
	}

	var req struct {
		TrackingNumber string `json:"trackingNumber" binding:"required"`
		Carrier        string `json:"carrier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := h.service.UpdateTrackingNumber(c.Request.Context(), subOrderID, req.TrackingNumber, req.Carrier)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": update})
}
