package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dropship-service/internal/services"
)

// SyncHandler exposes catalog, inventory and price synchronization
type SyncHandler struct {
	syncService  *services.SyncService
	priceService *services.PriceSyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *services.SyncService, priceService *services.PriceSyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService, priceService: priceService}
}

// SyncCatalog pulls a supplier's catalog into the local mirror
func (h *SyncHandler) SyncCatalog(c *gin.Context) {
	supplierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
		return
	}

	result, err := h.syncService.SyncSupplierCatalog(c.Request.Context(), supplierID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// SyncInventory refreshes stock levels for a supplier's mapped products
func (h *SyncHandler) SyncInventory(c *gin.Context) {
	supplierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
		return
	}

	result, err := h.syncService.SyncSupplierInventory(c.Request.Context(), supplierID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// SyncPrices re-prices a supplier's auto-sync products from the catalog mirror
func (h *SyncHandler) SyncPrices(c *gin.Context) {
	supplierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier id"})
		return
	}

	result, err := h.priceService.SyncSupplierPrices(c.Request.Context(), supplierID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// SyncAll runs a catalog sync across every active supplier
func (h *SyncHandler) SyncAll(c *gin.Context) {
	results, err := h.syncService.SyncAllSuppliers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

// SyncAllInventories refreshes stock across every active supplier in
// one registry fan-out
func (h *SyncHandler) SyncAllInventories(c *gin.Context) {
	results, err := h.syncService.RefreshInventoryAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

// SyncAllPrices runs price sync across every active supplier
func (h *SyncHandler) SyncAllPrices(c *gin.Context) {
	results, err := h.priceService.SyncAllPrices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}
