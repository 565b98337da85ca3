package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
)

// OrderHandler handles parent order endpoints
type OrderHandler struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderRepo repository.OrderRepository, productRepo repository.ProductRepository) *OrderHandler {
	return &OrderHandler{orderRepo: orderRepo, productRepo: productRepo}
}

// CreateOrderRequest is the inbound order payload. Item prices are
// captured from the current catalog at creation time.
type CreateOrderRequest struct {
	CustomerName    string          `json:"customerName"`
	Currency        string          `json:"currency"`
	ShippingAddress models.Address  `json:"shippingAddress" binding:"required"`
	Items           []OrderItemSpec `json:"items" binding:"required,min=1,dive"`
}

// OrderItemSpec is one requested line on a new order.
type OrderItemSpec struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// Create persists a new order, snapshotting unit prices from the catalog
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	order := &models.Order{
		CustomerName:    req.CustomerName,
		Status:          models.OrderStatusPending,
		Currency:        req.Currency,
		ShippingAddress: req.ShippingAddress,
	}
	if order.Currency == "" {
		order.Currency = "USD"
	}

	for _, spec := range req.Items {
		product, err := h.productRepo.GetByID(ctx, spec.ProductID)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "product " + spec.ProductID.String() + " not found"})
			return
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:         product.ID,
			SupplierProductID: product.SupplierProductID,
			Quantity:          spec.Quantity,
			UnitPriceCents:    product.PriceCents,
		})
		order.TotalCents += product.PriceCents * int64(spec.Quantity)
	}

	if err := h.orderRepo.Create(ctx, order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

// Get returns one order with its items and sub-orders
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.orderRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

// List returns a filtered, paginated order page
func (h *OrderHandler) List(c *gin.Context) {
	filters := repository.OrderFilters{Page: 1, Limit: 20}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		filters.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		filters.Limit = v
	}
	if v := c.Query("status"); v != "" {
		status := models.OrderStatus(v)
		filters.Status = &status
	}
	if v := c.Query("dropshipping"); v != "" {
		ds := v == "true"
		filters.IsDropshipping = &ds
	}
	if v, err := time.Parse(time.RFC3339, c.Query("dateFrom")); err == nil {
		filters.DateFrom = &v
	}
	if v, err := time.Parse(time.RFC3339, c.Query("dateTo")); err == nil {
		filters.DateTo = &v
	}

	orders, total, err := h.orderRepo.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  orders,
		"total": total,
		"page":  filters.Page,
		"limit": filters.Limit,
	})
}

// SubOrders returns the supplier sub-orders of one parent order
func (h *OrderHandler) SubOrders(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	subOrders, err := h.orderRepo.GetSubOrdersByOrder(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subOrders, "total": len(subOrders)})
}
