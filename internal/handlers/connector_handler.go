package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dropship-service/internal/connectors"
)

// ConnectorHandler exposes registry-level operations
type ConnectorHandler struct {
	registry *connectors.Registry
}

// NewConnectorHandler creates a new connector handler
func NewConnectorHandler(registry *connectors.Registry) *ConnectorHandler {
	return &ConnectorHandler{registry: registry}
}

// List returns every registered connector in registration order
func (h *ConnectorHandler) List(c *gin.Context) {
	list := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"data":   list,
		"total":  len(list),
		"active": h.registry.ActiveNames(),
	})
}

// Search fans a product query out across all active connectors
func (h *ConnectorHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	filters := &connectors.SearchFilters{
		Category:    c.Query("category"),
		Country:     c.Query("country"),
		InStockOnly: c.Query("inStock") == "true",
	}
	if v, err := strconv.ParseInt(c.Query("minPriceCents"), 10, 64); err == nil {
		filters.MinPriceCents = v
	}
	if v, err := strconv.ParseInt(c.Query("maxPriceCents"), 10, 64); err == nil {
		filters.MaxPriceCents = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		filters.Limit = v
	}

	results := h.registry.SearchAll(c.Request.Context(), query, filters)

	total := 0
	for _, products := range results {
		total += len(products)
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"total":   total,
	})
}

// BestSupplier finds the best-scoring product across active connectors
func (h *ConnectorHandler) BestSupplier(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	criteria := &connectors.BestSupplierCriteria{Priority: c.DefaultQuery("priority", "price")}
	if v, err := strconv.ParseFloat(c.Query("priceWeight"), 64); err == nil {
		criteria.PriceWeight = v
	}
	if v, err := strconv.ParseFloat(c.Query("stockWeight"), 64); err == nil {
		criteria.StockWeight = v
	}

	match := h.registry.FindBestSupplier(c.Request.Context(), query, criteria)
	if match == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no supplier carries a matching product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": match})
}

// Health re-authenticates every connector and reports per-connector status
func (h *ConnectorHandler) Health(c *gin.Context) {
	report := h.registry.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if report.TotalConnectors > 0 && report.ActiveConnectors == 0 {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
