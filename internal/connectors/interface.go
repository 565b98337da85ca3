package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dropship-service/internal/models"
)

// SupplierConnector is the capability interface every dropshipping
// supplier integration implements, live or simulated. Mutating and
// cross-network calls degrade to structured failure results instead of
// propagating errors, so the routing engine can keep processing the
// remaining suppliers of a multi-supplier order.
type SupplierConnector interface {
	// Name returns the unique connector name used for registration.
	Name() string

	// Type returns the supplier platform this connector talks to.
	Type() models.SupplierType

	// Authenticate establishes or validates credentials. Idempotent and
	// safe to call repeatedly. Fails closed (false, nil) on rejected
	// credentials; returns a *ConfigurationError only when a required
	// secret is missing entirely.
	Authenticate(ctx context.Context) (bool, error)

	// SearchProducts runs a free-text search with optional structured
	// filters. An empty result is a nil/empty slice, not an error.
	// Result ordering is supplier-defined.
	SearchProducts(ctx context.Context, query string, filters *SearchFilters) ([]SupplierProduct, error)

	// GetProductDetails returns nil (not an error) for an unknown id.
	GetProductDetails(ctx context.Context, productID string) (*SupplierProduct, error)

	// CreateOrder submits one sub-order, exactly one attempt per call.
	// Business rejections (out of stock, bad address) come back as
	// Success=false with a message and error code; only transport and
	// auth failures are returned as errors.
	CreateOrder(ctx context.Context, order *SupplierOrder) (*OrderResponse, error)

	// GetOrderStatus maps the supplier-native status of an order into
	// the canonical enum.
	GetOrderStatus(ctx context.Context, supplierOrderID string) (models.OrderStatus, error)

	// GetTrackingInfo returns nil (not an error) when the supplier has
	// no record of the tracking number.
	GetTrackingInfo(ctx context.Context, trackingNumber string) (*TrackingInfo, error)

	// CalculateShipping is advisory; failures are reported inside the
	// quote rather than as an error.
	CalculateShipping(ctx context.Context, items []SupplierOrderItem, address models.Address) *ShippingQuote

	// SyncInventory refreshes stock for the given supplier product ids.
	// Per-id failures degrade to stock 0 rather than aborting the batch.
	SyncInventory(ctx context.Context, productIDs []string) (map[string]int, error)

	// Info returns non-sensitive connector metadata.
	Info() ConnectorInfo
}

// ConnectorConfig carries the credentials and transport settings of one
// connector instance. Owned exclusively by that instance, never shared.
type ConnectorConfig struct {
	Name       string
	APIKey     string
	APISecret  string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Extra      map[string]string
}

// SearchFilters narrows a catalog search.
type SearchFilters struct {
	Category      string
	MinPriceCents int64
	MaxPriceCents int64
	Country       string
	InStockOnly   bool
	Limit         int
}

// SupplierProduct is the connector-normalized view of one supplier
// catalog product. Prices are minor currency units.
type SupplierProduct struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	PriceCents    int64              `json:"priceCents"`
	Currency      string             `json:"currency"`
	StockQuantity int                `json:"stockQuantity"`
	Images        []string           `json:"images,omitempty"`
	Variations    []ProductVariation `json:"variations,omitempty"`
	Category      string             `json:"category,omitempty"`
	ShippingInfo  map[string]string  `json:"shippingInfo,omitempty"`
	LastUpdated   time.Time          `json:"lastUpdated"`
}

// ProductVariation is one purchasable variant of a supplier product.
type ProductVariation struct {
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes,omitempty"`
	PriceCents int64             `json:"priceCents"`
	Stock      int               `json:"stock"`
}

// SupplierOrderItem is one line of a supplier-scoped sub-order.
type SupplierOrderItem struct {
	ProductID         string `json:"productId"`
	SupplierProductID string `json:"supplierProductId"`
	Quantity          int    `json:"quantity"`
	UnitPriceCents    int64  `json:"unitPriceCents"`
	VariationSKU      string `json:"variationSku,omitempty"`
}

// SupplierOrder is the supplier-scoped slice of a customer order
// submitted through CreateOrder.
type SupplierOrder struct {
	ID              string              `json:"id"`
	Items           []SupplierOrderItem `json:"items"`
	ShippingAddress models.Address      `json:"shippingAddress"`
	TotalCents      int64               `json:"totalCents"`
	Currency        string              `json:"currency"`
	ShippingMethod  string              `json:"shippingMethod,omitempty"`
	Notes           string              `json:"notes,omitempty"`
}

// OrderResponse is the tagged result of CreateOrder. Business failures
// arrive here with Success=false, never as a Go error.
type OrderResponse struct {
	Success           bool       `json:"success"`
	SupplierOrderID   string     `json:"supplierOrderId,omitempty"`
	TrackingNumber    string     `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	Message           string     `json:"message"`
	ErrorCode         string     `json:"errorCode,omitempty"`
}

// TrackingEvent is one entry of a shipment timeline.
type TrackingEvent struct {
	Date         time.Time `json:"date"`
	Status       string    `json:"status"`
	Location     string    `json:"location,omitempty"`
	Description  string    `json:"description,omitempty"`
	SupplierName string    `json:"supplierName,omitempty"`
}

// TrackingInfo is the canonical view of a supplier tracking record.
type TrackingInfo struct {
	TrackingNumber    string             `json:"trackingNumber"`
	Carrier           string             `json:"carrier,omitempty"`
	Status            models.OrderStatus `json:"status"`
	Events            []TrackingEvent    `json:"events"`
	EstimatedDelivery *time.Time         `json:"estimatedDelivery,omitempty"`
	LastUpdated       time.Time          `json:"lastUpdated"`
}

// ShippingQuote is a best-effort shipping estimate. A failed quote
// carries the failure in Error instead of aborting the caller.
type ShippingQuote struct {
	CostCents int64  `json:"costCents"`
	MinDays   int    `json:"minDays"`
	MaxDays   int    `json:"maxDays"`
	Carrier   string `json:"carrier,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ConnectorInfo is non-sensitive connector metadata for listings and
// health reports.
type ConnectorInfo struct {
	Name       string              `json:"name"`
	Type       models.SupplierType `json:"type"`
	BaseURL    string              `json:"baseUrl,omitempty"`
	Timeout    time.Duration       `json:"timeout"`
	MaxRetries int                 `json:"maxRetries"`
}

// ConfigurationError indicates a required connector credential or
// setting is missing. Surfaced immediately at registration time.
type ConfigurationError struct {
	Connector string
	Field     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("connector %s: missing required configuration %q", e.Connector, e.Field)
}

// TransportError indicates a network or HTTP-layer failure talking to a
// supplier API. Contained at the registry fan-out boundary.
type TransportError struct {
	Connector  string
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("connector %s: %s failed with status %d", e.Connector, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("connector %s: %s failed: %v", e.Connector, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
