package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dropship-service/internal/models"
)

// OrderRepository defines data access for orders and their supplier
// sub-orders.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters OrderFilters) ([]models.Order, int64, error)
	Update(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	SetRoutingStrategy(ctx context.Context, id uuid.UUID, strategy string) error
	SetTrackingNumber(ctx context.Context, id uuid.UUID, trackingNumber string) error

	CreateSubOrder(ctx context.Context, subOrder *models.SupplierSubOrder) error
	GetSubOrderByID(ctx context.Context, id uuid.UUID) (*models.SupplierSubOrder, error)
	GetSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SupplierSubOrder, error)
	UpdateSubOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	SetSubOrderDispatchResult(ctx context.Context, id uuid.UUID, supplierOrderID, trackingNumber string, response datatypes.JSON) error
	SetSubOrderTracking(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) error
	SetSubOrderNotes(ctx context.Context, id uuid.UUID, notes string) error

	RoutingStats(ctx context.Context, since time.Time) ([]StrategyCount, error)
	SubOrderStatsBySupplier(ctx context.Context, since time.Time) ([]SupplierOrderStats, error)
}

// OrderFilters narrows order list queries.
type OrderFilters struct {
	Status         *models.OrderStatus
	IsDropshipping *bool
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int
	Limit          int
}

// StrategyCount is one row of the routing strategy breakdown.
type StrategyCount struct {
	Strategy string `json:"strategy"`
	Count    int64  `json:"count"`
}

// SupplierOrderStats aggregates sub-order volume per supplier.
type SupplierOrderStats struct {
	SupplierID    uuid.UUID `json:"supplierId"`
	SubOrderCount int64     `json:"subOrderCount"`
	SubtotalCents int64     `json:"subtotalCents"`
	FailedCount   int64     `json:"failedCount"`
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("SubOrders").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filters OrderFilters) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.IsDropshipping != nil {
		query = query.Where("is_dropshipping = ?", *filters.IsDropshipping)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := 0
	if filters.Page > 1 {
		offset = (filters.Page - 1) * limit
	}

	err := query.
		Preload("Items").
		Preload("SubOrders").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if status == models.OrderStatusDelivered {
		updates["delivered_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *orderRepository) SetRoutingStrategy(ctx context.Context, id uuid.UUID, strategy string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"routing_strategy": strategy,
			"is_dropshipping":  true,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (r *orderRepository) SetTrackingNumber(ctx context.Context, id uuid.UUID, trackingNumber string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tracking_number": trackingNumber,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *orderRepository) CreateSubOrder(ctx context.Context, subOrder *models.SupplierSubOrder) error {
	return r.db.WithContext(ctx).Create(subOrder).Error
}

func (r *orderRepository) GetSubOrderByID(ctx context.Context, id uuid.UUID) (*models.SupplierSubOrder, error) {
	var subOrder models.SupplierSubOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		First(&subOrder, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &subOrder, nil
}

func (r *orderRepository) GetSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SupplierSubOrder, error) {
	var subOrders []models.SupplierSubOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Preload("Supplier").
		Order("created_at ASC").
		Find(&subOrders).Error
	return subOrders, err
}

// UpdateSubOrderStatus sets the status and stamps the matching
// milestone timestamp.
func (r *orderRepository) UpdateSubOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case models.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case models.OrderStatusShipped:
		updates["shipped_at"] = now
	case models.OrderStatusDelivered:
		updates["delivered_at"] = now
	}
	return r.db.WithContext(ctx).
		Model(&models.SupplierSubOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *orderRepository) SetSubOrderDispatchResult(ctx context.Context, id uuid.UUID, supplierOrderID, trackingNumber string, response datatypes.JSON) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"supplier_order_id": supplierOrderID,
		"supplier_response": response,
		"sent_at":           now,
		"updated_at":        now,
	}
	if trackingNumber != "" {
		updates["tracking_number"] = trackingNumber
	}
	return r.db.WithContext(ctx).
		Model(&models.SupplierSubOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *orderRepository) SetSubOrderTracking(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplierSubOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tracking_number": trackingNumber,
			"carrier":         carrier,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *orderRepository) SetSubOrderNotes(ctx context.Context, id uuid.UUID, notes string) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplierSubOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"notes":      notes,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *orderRepository) RoutingStats(ctx context.Context, since time.Time) ([]StrategyCount, error) {
	var stats []StrategyCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("routing_strategy AS strategy, COUNT(*) AS count").
		Where("routing_strategy <> '' AND created_at >= ?", since).
		Group("routing_strategy").
		Order("count DESC").
		Scan(&stats).Error
	return stats, err
}

func (r *orderRepository) SubOrderStatsBySupplier(ctx context.Context, since time.Time) ([]SupplierOrderStats, error) {
	var stats []SupplierOrderStats
	err := r.db.WithContext(ctx).
		Model(&models.SupplierSubOrder{}).
		Select("supplier_id, COUNT(*) AS sub_order_count, COALESCE(SUM(subtotal_cents), 0) AS subtotal_cents, COUNT(*) FILTER (WHERE status = 'failed') AS failed_count").
		Where("created_at >= ?", since).
		Group("supplier_id").
		Order("sub_order_count DESC").
		Scan(&stats).Error
	return stats, err
}
