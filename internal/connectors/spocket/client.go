package spocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
)

const defaultBaseURL = "https://api.spocket.co/api/v1"

// Connector implements SupplierConnector for Spocket's REST API, which
// authenticates with a plain Bearer API key.
type Connector struct {
	httpClient  *http.Client
	retrier     *connectors.Retrier
	rateLimiter *rate.Limiter

	name    string
	apiKey  string
	baseURL string
}

func New(cfg connectors.ConnectorConfig) *Connector {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retryCfg := connectors.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.MaxRetries
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &Connector{
		httpClient:  &http.Client{Timeout: timeout},
		retrier:     connectors.NewRetrier(retryCfg),
		rateLimiter: rate.NewLimiter(rate.Limit(5), 2),
		name:        cfg.Name,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
	if c.name == "" {
		c.name = "spocket"
	}
	return c
}

func (c *Connector) Name() string {
	return c.name
}

func (c *Connector) Type() models.SupplierType {
	return models.SupplierSpocket
}

func (c *Connector) Info() connectors.ConnectorInfo {
	return connectors.ConnectorInfo{
		Name:       c.name,
		Type:       models.SupplierSpocket,
		BaseURL:    c.baseURL,
		Timeout:    c.httpClient.Timeout,
		MaxRetries: connectors.DefaultRetryConfig().MaxRetries,
	}
}

// Authenticate verifies the API key against the account endpoint.
func (c *Connector) Authenticate(ctx context.Context) (bool, error) {
	if c.apiKey == "" {
		return false, &connectors.ConfigurationError{Connector: c.name, Field: "api_key"}
	}

	if _, err := c.doRequest(ctx, http.MethodGet, "/me", nil); err != nil {
		var transportErr *connectors.TransportError
		if errors.As(err, &transportErr) {
			if transportErr.StatusCode == http.StatusUnauthorized || transportErr.StatusCode == http.StatusForbidden {
				return false, nil
			}
		}
		return false, err
	}
	return true, nil
}

func (c *Connector) SearchProducts(ctx context.Context, query string, filters *connectors.SearchFilters) ([]connectors.SupplierProduct, error) {
	values := url.Values{}
	values.Set("search", query)
	values.Set("per_page", "20")
	if filters != nil {
		if filters.Category != "" {
			values.Set("category", filters.Category)
		}
		if filters.MinPriceCents > 0 {
			values.Set("min_price", centsToDecimal(filters.MinPriceCents))
		}
		if filters.MaxPriceCents > 0 {
			values.Set("max_price", centsToDecimal(filters.MaxPriceCents))
		}
		if filters.Country != "" {
			values.Set("ships_to", filters.Country)
		}
		if filters.InStockOnly {
			values.Set("in_stock", "true")
		}
		if filters.Limit > 0 {
			values.Set("per_page", strconv.Itoa(filters.Limit))
		}
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/products?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Products []spocketProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse product search: %w", err)
	}

	products := make([]connectors.SupplierProduct, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, convertProduct(p))
	}
	return products, nil
}

func (c *Connector) GetProductDetails(ctx context.Context, productID string) (*connectors.SupplierProduct, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), nil)
	if err != nil {
		var transportErr *connectors.TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp struct {
		Product spocketProduct `json:"product"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse product details: %w", err)
	}
	product := convertProduct(resp.Product)
	return &product, nil
}

func (c *Connector) CreateOrder(ctx context.Context, order *connectors.SupplierOrder) (*connectors.OrderResponse, error) {
	lineItems := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, map[string]interface{}{
			"listing_id": item.SupplierProductID,
			"variant_id": item.VariationSKU,
			"quantity":   item.Quantity,
		})
	}
	payload := map[string]interface{}{
		"external_id": order.ID,
		"line_items":  lineItems,
		"shipping_address": map[string]string{
			"full_name": order.ShippingAddress.FullName,
			"address1":  order.ShippingAddress.AddressLine1,
			"address2":  order.ShippingAddress.AddressLine2,
			"city":      order.ShippingAddress.City,
			"state":     order.ShippingAddress.State,
			"zip":       order.ShippingAddress.PostalCode,
			"country":   order.ShippingAddress.Country,
			"phone":     order.ShippingAddress.Phone,
		},
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		var transportErr *connectors.TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusUnprocessableEntity {
			return &connectors.OrderResponse{
				Success:   false,
				Message:   "order rejected by supplier",
				ErrorCode: "ORDER_REJECTED",
			}, nil
		}
		return nil, err
	}

	var resp struct {
		Order struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"order"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}
	if len(resp.Errors) > 0 || resp.Order.ID == "" {
		message := "order rejected by supplier"
		if len(resp.Errors) > 0 {
			message = resp.Errors[0]
		}
		return &connectors.OrderResponse{Success: false, Message: message, ErrorCode: "ORDER_REJECTED"}, nil
	}

	return &connectors.OrderResponse{
		Success:         true,
		SupplierOrderID: resp.Order.ID,
		Message:         fmt.Sprintf("order accepted with %d items", len(order.Items)),
	}, nil
}

func (c *Connector) GetOrderStatus(ctx context.Context, supplierOrderID string) (models.OrderStatus, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(supplierOrderID), nil)
	if err != nil {
		return models.OrderStatusPending, err
	}

	var resp struct {
		Order struct {
			Status string `json:"status"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.OrderStatusPending, fmt.Errorf("failed to parse order status: %w", err)
	}
	return mapOrderStatus(resp.Order.Status), nil
}

func (c *Connector) GetTrackingInfo(ctx context.Context, trackingNumber string) (*connectors.TrackingInfo, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/trackings/"+url.PathEscape(trackingNumber), nil)
	if err != nil {
		var transportErr *connectors.TransportError
		if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp struct {
		Tracking struct {
			Status            string `json:"status"`
			Carrier           string `json:"carrier"`
			EstimatedDelivery string `json:"estimated_delivery"`
			Checkpoints       []struct {
				Time        string `json:"time"`
				Status      string `json:"status"`
				Location    string `json:"location"`
				Description string `json:"description"`
			} `json:"checkpoints"`
		} `json:"tracking"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tracking response: %w", err)
	}

	events := make([]connectors.TrackingEvent, 0, len(resp.Tracking.Checkpoints))
	for _, cp := range resp.Tracking.Checkpoints {
		date, _ := time.Parse(time.RFC3339, cp.Time)
		events = append(events, connectors.TrackingEvent{
			Date:        date,
			Status:      cp.Status,
			Location:    cp.Location,
			Description: cp.Description,
		})
	}

	info := &connectors.TrackingInfo{
		TrackingNumber: trackingNumber,
		Carrier:        resp.Tracking.Carrier,
		Status:         mapOrderStatus(resp.Tracking.Status),
		Events:         events,
		LastUpdated:    time.Now().UTC(),
	}
	if eta, err := time.Parse(time.RFC3339, resp.Tracking.EstimatedDelivery); err == nil {
		info.EstimatedDelivery = &eta
	}
	return info, nil
}

func (c *Connector) CalculateShipping(ctx context.Context, items []connectors.SupplierOrderItem, address models.Address) *connectors.ShippingQuote {
	lineItems := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, map[string]interface{}{
			"listing_id": item.SupplierProductID,
			"quantity":   item.Quantity,
		})
	}
	payload := map[string]interface{}{
		"line_items": lineItems,
		"country":    address.Country,
		"zip":        address.PostalCode,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/shipping/estimate", payload)
	if err != nil {
		return &connectors.ShippingQuote{Error: err.Error()}
	}

	var resp struct {
		Estimate struct {
			Cost    string `json:"cost"`
			MinDays int    `json:"min_days"`
			MaxDays int    `json:"max_days"`
			Carrier string `json:"carrier"`
		} `json:"estimate"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &connectors.ShippingQuote{Error: "failed to parse shipping estimate: " + err.Error()}
	}
	return &connectors.ShippingQuote{
		CostCents: decimalToCents(resp.Estimate.Cost),
		MinDays:   resp.Estimate.MinDays,
		MaxDays:   resp.Estimate.MaxDays,
		Carrier:   resp.Estimate.Carrier,
	}
}

func (c *Connector) SyncInventory(ctx context.Context, productIDs []string) (map[string]int, error) {
	inventory := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		product, err := c.GetProductDetails(ctx, id)
		if err != nil || product == nil {
			inventory[id] = 0
			continue
		}
		inventory[id] = product.StockQuantity
	}
	return inventory, nil
}

// doRequest performs one authenticated request through the retrier,
// returning the raw body. Non-2xx statuses surface as transport errors.
func (c *Connector) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var encoded []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		encoded = data
	}

	resp, err := c.retrier.DoHTTP(ctx, method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var reqBody io.Reader
		if encoded != nil {
			reqBody = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, &connectors.TransportError{Connector: c.name, Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &connectors.TransportError{Connector: c.name, Op: method + " " + path, Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &connectors.TransportError{Connector: c.name, Op: method + " " + path, StatusCode: resp.StatusCode}
	}
	return body, nil
}

type spocketProduct struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Inventory   int    `json:"inventory"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
	Category string `json:"category"`
	Variants []struct {
		SKU       string `json:"sku"`
		Price     string `json:"price"`
		Inventory int    `json:"inventory"`
		Options   map[string]string `json:"options"`
	} `json:"variants"`
	ShippingOrigin string `json:"shipping_origin"`
}

func convertProduct(p spocketProduct) connectors.SupplierProduct {
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}
	product := connectors.SupplierProduct{
		ID:            p.ID,
		Name:          p.Title,
		Description:   p.Description,
		PriceCents:    decimalToCents(p.Price),
		Currency:      currency,
		StockQuantity: p.Inventory,
		Category:      p.Category,
		LastUpdated:   time.Now().UTC(),
	}
	for _, img := range p.Images {
		product.Images = append(product.Images, img.URL)
	}
	for _, v := range p.Variants {
		product.Variations = append(product.Variations, connectors.ProductVariation{
			SKU:        v.SKU,
			PriceCents: decimalToCents(v.Price),
			Stock:      v.Inventory,
			Attributes: v.Options,
		})
	}
	if p.ShippingOrigin != "" {
		product.ShippingInfo = map[string]string{"origin": p.ShippingOrigin}
	}
	return product
}

func mapOrderStatus(native string) models.OrderStatus {
	switch strings.ToLower(native) {
	case "unpaid", "pending":
		return models.OrderStatusPending
	case "paid", "accepted", "confirmed":
		return models.OrderStatusConfirmed
	case "processing", "fulfilling":
		return models.OrderStatusProcessing
	case "shipped", "in_transit":
		return models.OrderStatusShipped
	case "delivered":
		return models.OrderStatusDelivered
	case "cancelled", "refunded":
		return models.OrderStatusCancelled
	case "failed":
		return models.OrderStatusFailed
	default:
		return models.OrderStatusPending
	}
}

func decimalToCents(s string) int64 {
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f*100 + 0.5)
}

func centsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
