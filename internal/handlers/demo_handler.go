package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dropship-service/internal/connectors"
	"dropship-service/internal/connectors/demo"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
)

// DemoHandler seeds simulated suppliers for environments without live
// supplier credentials.
type DemoHandler struct {
	registry     *connectors.Registry
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	orderRepo    repository.OrderRepository
}

// NewDemoHandler creates a new demo handler
func NewDemoHandler(registry *connectors.Registry, supplierRepo repository.SupplierRepository, productRepo repository.ProductRepository, orderRepo repository.OrderRepository) *DemoHandler {
	return &DemoHandler{registry: registry, supplierRepo: supplierRepo, productRepo: productRepo, orderRepo: orderRepo}
}

type demoSupplierSeed struct {
	name              string
	shippingCostCents int64
	shippingMinDays   int
	shippingMaxDays   int
	skus              []string
}

var demoSeeds = []demoSupplierSeed{
	{name: "demo-express", shippingCostCents: 1500, shippingMinDays: 2, shippingMaxDays: 5, skus: []string{"demo-001", "demo-002"}},
	{name: "demo-economy", shippingCostCents: 500, shippingMinDays: 10, shippingMaxDays: 21, skus: []string{"demo-003", "demo-004"}},
}

// Setup creates demo suppliers, registers their simulated connectors
// and maps canonical products to the canned catalog. Safe to call twice.
func (h *DemoHandler) Setup(c *gin.Context) {
	ctx := c.Request.Context()

	created := make([]models.Supplier, 0, len(demoSeeds))
	for _, seed := range demoSeeds {
		supplier, err := h.ensureSupplier(ctx, seed)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		connector := demo.New(seed.name)
		if _, err := h.registry.Register(ctx, seed.name, connector); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if err := h.ensureProducts(ctx, supplier, connector, seed.skus); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		created = append(created, *supplier)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "demo environment ready",
		"suppliers": created,
	})
}

func (h *DemoHandler) ensureSupplier(ctx context.Context, seed demoSupplierSeed) (*models.Supplier, error) {
	if existing, err := h.supplierRepo.GetByName(ctx, seed.name); err == nil {
		return existing, nil
	}

	supplier := &models.Supplier{
		Name:                seed.name,
		SupplierType:        models.SupplierDemo,
		IsActive:            true,
		ShippingCostCents:   seed.shippingCostCents,
		ShippingTimeMinDays: seed.shippingMinDays,
		ShippingTimeMaxDays: seed.shippingMaxDays,
		Config:              models.JSONB{"demo": true},
	}
	if err := h.supplierRepo.Create(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

func (h *DemoHandler) ensureProducts(ctx context.Context, supplier *models.Supplier, connector *demo.Connector, skus []string) error {
	existing, err := h.productRepo.GetBySupplier(ctx, supplier.ID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p.SupplierProductID] = true
	}

	for _, sku := range skus {
		if known[sku] {
			continue
		}
		detail, err := connector.GetProductDetails(ctx, sku)
		if err != nil || detail == nil {
			continue
		}
		supplierID := supplier.ID
		product := &models.Product{
			Name:               detail.Name,
			Description:        detail.Description,
			PriceCents:         detail.PriceCents + detail.PriceCents*30/100,
			Stock:              detail.StockQuantity,
			SupplierID:         &supplierID,
			SupplierProductID:  sku,
			AutoSyncPrice:      true,
			MarginPercentage:   30,
			SupplierPriceCents: detail.PriceCents,
		}
		if err := h.productRepo.Create(ctx, product); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceSubOrder pushes a demo sub-order forward through its lifecycle,
// mirroring the webhook a live supplier would send.
func (h *DemoHandler) AdvanceSubOrder(c *gin.Context) {
	subOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sub-order id"})
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	subOrder, err := h.orderRepo.GetSubOrderByID(ctx, subOrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sub-order not found"})
		return
	}
	if subOrder.Supplier == nil || subOrder.Supplier.SupplierType != models.SupplierDemo {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "sub-order does not belong to a demo supplier"})
		return
	}

	connector, ok := h.registry.Get(subOrder.Supplier.Name)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "demo connector not registered, run setup first"})
		return
	}
	demoConnector, ok := connector.(*demo.Connector)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "connector is not a demo connector"})
		return
	}

	if err := demoConnector.AdvanceOrder(subOrder.SupplierOrderID, req.Status); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err := h.orderRepo.UpdateSubOrderStatus(ctx, subOrder.ID, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"subOrderId": subOrder.ID,
		"status":     req.Status,
	}})
}
