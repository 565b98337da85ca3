package demo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
)

// Connector is an in-memory supplier used for local development and
// tests. It honors the full SupplierConnector contract against a
// mutable catalog, with no network involved.
type Connector struct {
	mu sync.RWMutex

	name     string
	failAuth bool
	latency  time.Duration

	products map[string]connectors.SupplierProduct
	orders   map[string]*demoOrder
	tracking map[string]*connectors.TrackingInfo
}

type demoOrder struct {
	supplierOrderID string
	status          models.OrderStatus
	trackingNumber  string
	createdAt       time.Time
}

// Option tweaks connector behavior at construction time.
type Option func(*Connector)

// WithProducts replaces the default catalog.
func WithProducts(products []connectors.SupplierProduct) Option {
	return func(c *Connector) {
		c.products = make(map[string]connectors.SupplierProduct, len(products))
		for _, p := range products {
			c.products[p.ID] = p
		}
	}
}

// WithAuthFailure makes Authenticate report invalid credentials.
func WithAuthFailure() Option {
	return func(c *Connector) {
		c.failAuth = true
	}
}

// WithLatency adds an artificial delay to every call.
func WithLatency(d time.Duration) Option {
	return func(c *Connector) {
		c.latency = d
	}
}

// New creates a demo connector preloaded with a small catalog.
func New(name string, opts ...Option) *Connector {
	c := &Connector{
		name:     name,
		products: defaultCatalog(),
		orders:   make(map[string]*demoOrder),
		tracking: make(map[string]*connectors.TrackingInfo),
	}
	if c.name == "" {
		c.name = "demo"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultCatalog() map[string]connectors.SupplierProduct {
	now := time.Now().UTC()
	catalog := []connectors.SupplierProduct{
		{ID: "demo-001", Name: "Wireless Earbuds", Description: "Bluetooth 5.3 earbuds with charging case", PriceCents: 1599, Currency: "USD", StockQuantity: 250, Category: "electronics", LastUpdated: now},
		{ID: "demo-002", Name: "Phone Stand", Description: "Adjustable aluminum phone stand", PriceCents: 899, Currency: "USD", StockQuantity: 500, Category: "accessories", LastUpdated: now},
		{ID: "demo-003", Name: "LED Strip Lights", Description: "5m RGB LED strip with remote", PriceCents: 1299, Currency: "USD", StockQuantity: 120, Category: "home", LastUpdated: now},
		{ID: "demo-004", Name: "Yoga Mat", Description: "Non-slip 6mm exercise mat", PriceCents: 2199, Currency: "USD", StockQuantity: 80, Category: "fitness", LastUpdated: now},
		{ID: "demo-005", Name: "Pet Grooming Brush", Description: "Self-cleaning slicker brush", PriceCents: 1099, Currency: "USD", StockQuantity: 0, Category: "pets", LastUpdated: now},
	}
	products := make(map[string]connectors.SupplierProduct, len(catalog))
	for _, p := range catalog {
		products[p.ID] = p
	}
	return products
}

func (c *Connector) Name() string {
	return c.name
}

func (c *Connector) Type() models.SupplierType {
	return models.SupplierDemo
}

func (c *Connector) Info() connectors.ConnectorInfo {
	return connectors.ConnectorInfo{
		Name: c.name,
		Type: models.SupplierDemo,
	}
}

func (c *Connector) Authenticate(ctx context.Context) (bool, error) {
	if err := c.simulate(ctx); err != nil {
		return false, err
	}
	return !c.failAuth, nil
}

func (c *Connector) SearchProducts(ctx context.Context, query string, filters *connectors.SearchFilters) ([]connectors.SupplierProduct, error) {
	if err := c.simulate(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(query)
	results := make([]connectors.SupplierProduct, 0)
	for _, p := range c.products {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(p.Description), needle) {
			continue
		}
		if filters != nil {
			if filters.Category != "" && p.Category != filters.Category {
				continue
			}
			if filters.MinPriceCents > 0 && p.PriceCents < filters.MinPriceCents {
				continue
			}
			if filters.MaxPriceCents > 0 && p.PriceCents > filters.MaxPriceCents {
				continue
			}
			if filters.InStockOnly && p.StockQuantity == 0 {
				continue
			}
		}
		results = append(results, p)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if filters != nil && filters.Limit > 0 && len(results) > filters.Limit {
		results = results[:filters.Limit]
	}
	return results, nil
}

func (c *Connector) GetProductDetails(ctx context.Context, productID string) (*connectors.SupplierProduct, error) {
	if err := c.simulate(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// CreateOrder decrements stock atomically. Unknown products and
// insufficient stock are business rejections, not errors.
func (c *Connector) CreateOrder(ctx context.Context, order *connectors.SupplierOrder) (*connectors.OrderResponse, error) {
	if err := c.simulate(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range order.Items {
		p, ok := c.products[item.SupplierProductID]
		if !ok {
			return &connectors.OrderResponse{
				Success:   false,
				Message:   fmt.Sprintf("unknown product %s", item.SupplierProductID),
				ErrorCode: "PRODUCT_NOT_FOUND",
			}, nil
		}
		if p.StockQuantity < item.Quantity {
			return &connectors.OrderResponse{
				Success:   false,
				Message:   fmt.Sprintf("product %s has %d units, %d requested", item.SupplierProductID, p.StockQuantity, item.Quantity),
				ErrorCode: "OUT_OF_STOCK",
			}, nil
		}
	}
	for _, item := range order.Items {
		p := c.products[item.SupplierProductID]
		p.StockQuantity -= item.Quantity
		c.products[item.SupplierProductID] = p
	}

	supplierOrderID := "DEMO-" + strings.ToUpper(uuid.NewString()[:8])
	trackingNumber := fmt.Sprintf("LG%08d", len(c.orders)+10000000)
	now := time.Now().UTC()
	c.orders[supplierOrderID] = &demoOrder{
		supplierOrderID: supplierOrderID,
		status:          models.OrderStatusConfirmed,
		trackingNumber:  trackingNumber,
		createdAt:       now,
	}

	eta := now.Add(7 * 24 * time.Hour)
	c.tracking[trackingNumber] = &connectors.TrackingInfo{
		TrackingNumber:    trackingNumber,
		Carrier:           "loggi",
		Status:            models.OrderStatusConfirmed,
		EstimatedDelivery: &eta,
		Events: []connectors.TrackingEvent{
			{Date: now, Status: "order_received", Location: "fulfillment center", Description: "Order received by supplier"},
		},
		LastUpdated: now,
	}

	return &connectors.OrderResponse{
		Success:         true,
		SupplierOrderID: supplierOrderID,
		TrackingNumber:  trackingNumber,
		EstimatedDelivery: &eta,
		Message:         fmt.Sprintf("order accepted with %d items", len(order.Items)),
	}, nil
}

func (c *Connector) GetOrderStatus(ctx context.Context, supplierOrderID string) (models.OrderStatus, error) {
	if err := c.simulate(ctx); err != nil {
		return models.OrderStatusPending, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	order, ok := c.orders[supplierOrderID]
	if !ok {
		return models.OrderStatusPending, fmt.Errorf("order %s not found", supplierOrderID)
	}
	return order.status, nil
}

// AdvanceOrder moves a simulated order to the given status and appends
// a matching tracking event. Used by the demo setup flow.
func (c *Connector) AdvanceOrder(supplierOrderID string, status models.OrderStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[supplierOrderID]
	if !ok {
		return fmt.Errorf("order %s not found", supplierOrderID)
	}
	if err := models.ValidateSubOrderTransition(order.status, status); err != nil {
		return err
	}
	order.status = status

	if info, ok := c.tracking[order.trackingNumber]; ok {
		info.Status = status
		info.Events = append([]connectors.TrackingEvent{{
			Date:        time.Now().UTC(),
			Status:      string(status),
			Location:    "in transit",
			Description: fmt.Sprintf("Shipment %s", status),
		}}, info.Events...)
		info.LastUpdated = time.Now().UTC()
	}
	return nil
}

func (c *Connector) GetTrackingInfo(ctx context.Context, trackingNumber string) (*connectors.TrackingInfo, error) {
	if err := c.simulate(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.tracking[trackingNumber]
	if !ok {
		return nil, nil
	}
	copied := *info
	copied.Events = append([]connectors.TrackingEvent(nil), info.Events...)
	return &copied, nil
}

func (c *Connector) CalculateShipping(ctx context.Context, items []connectors.SupplierOrderItem, address models.Address) *connectors.ShippingQuote {
	if err := c.simulate(ctx); err != nil {
		return &connectors.ShippingQuote{Error: err.Error()}
	}

	var units int
	for _, item := range items {
		units += item.Quantity
	}
	// Flat base plus a per-unit surcharge, international doubles it.
	costCents := int64(499 + 150*units)
	minDays, maxDays := 3, 7
	if !strings.EqualFold(address.Country, "BR") {
		costCents *= 2
		minDays, maxDays = 10, 21
	}
	return &connectors.ShippingQuote{
		CostCents: costCents,
		MinDays:   minDays,
		MaxDays:   maxDays,
		Carrier:   "loggi",
	}
}

func (c *Connector) SyncInventory(ctx context.Context, productIDs []string) (map[string]int, error) {
	if err := c.simulate(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	inventory := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		if p, ok := c.products[id]; ok {
			inventory[id] = p.StockQuantity
		} else {
			inventory[id] = 0
		}
	}
	return inventory, nil
}

// SetStock overrides a product's stock level.
func (c *Connector) SetStock(productID string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.products[productID]; ok {
		p.StockQuantity = stock
		c.products[productID] = p
	}
}

func (c *Connector) simulate(ctx context.Context) error {
	if c.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(c.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
