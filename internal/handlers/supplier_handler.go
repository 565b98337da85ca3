package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dropship-service/internal/repository"
	"dropship-service/internal/services"
)

// SupplierHandler handles supplier lifecycle endpoints
type SupplierHandler struct {
	service      *services.SupplierService
	supplierRepo repository.SupplierRepository
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(service *services.SupplierService, supplierRepo repository.SupplierRepository) *SupplierHandler {
	return &SupplierHandler{service: service, supplierRepo: supplierRepo}
}

// List returns all active suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	suppliers, err := h.supplierRepo.GetActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  suppliers,
		"total": len(suppliers),
	})
}

// Create onboards a new supplier
func (h *SupplierHandler) Create(c *gin.Context) {
	var req services.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": supplier})
}

// Get returns a single supplier
func (h *SupplierHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	supplier, err := h.supplierRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "supplier not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplier})
}

// Register builds and registers the supplier's connector
func (h *SupplierHandler) Register(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	registered, err := h.service.Register(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !registered {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"registered": false,
			"error":      "supplier authentication rejected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"registered": true})
}

// Unregister removes the supplier's connector
func (h *SupplierHandler) Unregister(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.Unregister(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unregistered": true})
}

// TestConnection re-authenticates the supplier's connector
func (h *SupplierHandler) TestConnection(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.TestConnection(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"connected": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connected": true})
}

// UpdateCredentials replaces the supplier's stored credentials
func (h *SupplierHandler) UpdateCredentials(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req struct {
		Credentials map[string]interface{} `json:"credentials" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpdateCredentials(c.Request.Context(), id, req.Credentials); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}
