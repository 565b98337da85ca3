package aliexpress

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
)

const (
	defaultBaseURL = "https://api-sg.aliexpress.com/sync"
	apiVersion     = "2.0"
)

// Connector implements SupplierConnector for the AliExpress
// Dropshipping API. Every request carries an HMAC-SHA256 signature over
// the sorted query parameters.
type Connector struct {
	httpClient  *http.Client
	retrier     *connectors.Retrier
	rateLimiter *rate.Limiter

	name        string
	appKey      string
	appSecret   string
	accessToken string
	baseURL     string
	currency    string
	country     string
}

// New creates an AliExpress connector from the given config. The access
// token is expected in cfg.Extra["access_token"].
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
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1),
		name:        cfg.Name,
		appKey:      cfg.APIKey,
		appSecret:   cfg.APISecret,
		accessToken: cfg.Extra["access_token"],
		baseURL:     baseURL,
		currency:    valueOr(cfg.Extra["currency"], "USD"),
		country:     valueOr(cfg.Extra["country"], "US"),
	}
	if c.name == "" {
		c.name = "aliexpress"
	}
	return c
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (c *Connector) Name() string {
	return c.name
}

func (c *Connector) Type() models.SupplierType {
	return models.SupplierAliExpress
}

func (c *Connector) Info() connectors.ConnectorInfo {
	return connectors.ConnectorInfo{
		Name:       c.name,
		Type:       models.SupplierAliExpress,
		BaseURL:    c.baseURL,
		Timeout:    c.httpClient.Timeout,
		MaxRetries: connectors.DefaultRetryConfig().MaxRetries,
	}
}

// Authenticate validates the configured token with a lightweight
// category call. Missing app credentials are a configuration error; a
// rejected or absent token fails closed.
func (c *Connector) Authenticate(ctx context.Context) (bool, error) {
	if c.appKey == "" {
		return false, &connectors.ConfigurationError{Connector: c.name, Field: "api_key"}
	}
	if c.appSecret == "" {
		return false, &connectors.ConfigurationError{Connector: c.name, Field: "api_secret"}
	}
	if c.accessToken == "" {
		return false, nil
	}

	body, err := c.call(ctx, "aliexpress.ds.category.get", nil)
	if err != nil {
		if connectors.IsTransportError(err) {
			return false, err
		}
		return false, nil
	}

	var resp struct {
		ErrorResponse *struct {
			Code string `json:"code"`
		} `json:"error_response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, nil
	}
	return resp.ErrorResponse == nil, nil
}

// SearchProducts runs a free-text search against the dropshipping
// catalog. No matches is an empty slice.
func (c *Connector) SearchProducts(ctx context.Context, query string, filters *connectors.SearchFilters) ([]connectors.SupplierProduct, error) {
	params := map[string]string{
		"keyword":         query,
		"target_currency": c.currency,
		"ship_to_country": c.country,
		"page_size":       "20",
	}
	if filters != nil {
		if filters.Category != "" {
			params["category_id"] = filters.Category
		}
		if filters.MinPriceCents > 0 {
			params["min_sale_price"] = centsToDecimal(filters.MinPriceCents)
		}
		if filters.MaxPriceCents > 0 {
			params["max_sale_price"] = centsToDecimal(filters.MaxPriceCents)
		}
		if filters.Country != "" {
			params["ship_to_country"] = filters.Country
		}
		if filters.Limit > 0 {
			params["page_size"] = strconv.Itoa(filters.Limit)
		}
	}

	body, err := c.call(ctx, "aliexpress.ds.text.search", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			Products []aliProduct `json:"products"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	products := make([]connectors.SupplierProduct, 0, len(resp.Result.Products))
	for _, p := range resp.Result.Products {
		products = append(products, convertProduct(p, c.currency))
	}
	return products, nil
}

// GetProductDetails returns nil for an unknown product id.
func (c *Connector) GetProductDetails(ctx context.Context, productID string) (*connectors.SupplierProduct, error) {
	body, err := c.call(ctx, "aliexpress.ds.product.get", map[string]string{
		"product_id":      productID,
		"target_currency": c.currency,
		"ship_to_country": c.country,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result *aliProduct `json:"result"`
		ErrorResponse *struct {
			Code string `json:"code"`
		} `json:"error_response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse product response: %w", err)
	}
	if resp.Result == nil || resp.ErrorResponse != nil {
		return nil, nil
	}
	product := convertProduct(*resp.Result, c.currency)
	return &product, nil
}

// CreateOrder submits one sub-order. Supplier rejections come back as
// Success=false with the supplier's code; only transport failures error.
func (c *Connector) CreateOrder(ctx context.Context, order *connectors.SupplierOrder) (*connectors.OrderResponse, error) {
	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"product_id": item.SupplierProductID,
			"sku_attr":   item.VariationSKU,
			"quantity":   item.Quantity,
		})
	}
	payload := map[string]interface{}{
		"out_order_id": order.ID,
		"product_items": items,
		"logistics_address": map[string]string{
			"contact_person": order.ShippingAddress.FullName,
			"address":        order.ShippingAddress.AddressLine1,
			"address2":       order.ShippingAddress.AddressLine2,
			"city":           order.ShippingAddress.City,
			"province":       order.ShippingAddress.State,
			"zip":            order.ShippingAddress.PostalCode,
			"country":        order.ShippingAddress.Country,
			"mobile_no":      order.ShippingAddress.Phone,
		},
	}
	payloadJSON, _ := json.Marshal(payload)

	body, err := c.call(ctx, "aliexpress.ds.order.create", map[string]string{
		"param_place_order_request4_open_api_d_t_o": string(payloadJSON),
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			IsSuccess    bool     `json:"is_success"`
			OrderList    []int64  `json:"order_list"`
			ErrorCode    string   `json:"error_code"`
			ErrorMessage string   `json:"error_msg"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}

	if !resp.Result.IsSuccess || len(resp.Result.OrderList) == 0 {
		message := resp.Result.ErrorMessage
		if message == "" {
			message = "order rejected by supplier"
		}
		code := resp.Result.ErrorCode
		if code == "" {
			code = "ORDER_REJECTED"
		}
		return &connectors.OrderResponse{Success: false, Message: message, ErrorCode: code}, nil
	}

	return &connectors.OrderResponse{
		Success:         true,
		SupplierOrderID: strconv.FormatInt(resp.Result.OrderList[0], 10),
		Message:         fmt.Sprintf("order accepted with %d items", len(order.Items)),
	}, nil
}

// GetOrderStatus maps the AliExpress order status vocabulary into the
// canonical enum.
func (c *Connector) GetOrderStatus(ctx context.Context, supplierOrderID string) (models.OrderStatus, error) {
	body, err := c.call(ctx, "aliexpress.ds.order.get", map[string]string{
		"order_id": supplierOrderID,
	})
	if err != nil {
		return models.OrderStatusPending, err
	}

	var resp struct {
		Result struct {
			OrderStatus string `json:"order_status"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.OrderStatusPending, fmt.Errorf("failed to parse order status: %w", err)
	}
	return mapOrderStatus(resp.Result.OrderStatus), nil
}

// GetTrackingInfo returns nil when the supplier has no record of the
// tracking number.
func (c *Connector) GetTrackingInfo(ctx context.Context, trackingNumber string) (*connectors.TrackingInfo, error) {
	body, err := c.call(ctx, "aliexpress.ds.logistics.tracking.get", map[string]string{
		"logistics_no": trackingNumber,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result *struct {
			Status  string `json:"status"`
			Details []struct {
				EventDate   string `json:"event_date"`
				EventDesc   string `json:"event_desc"`
				Address     string `json:"address"`
			} `json:"details"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tracking response: %w", err)
	}
	if resp.Result == nil {
		return nil, nil
	}

	events := make([]connectors.TrackingEvent, 0, len(resp.Result.Details))
	for _, d := range resp.Result.Details {
		date, _ := time.Parse(time.RFC3339, d.EventDate)
		events = append(events, connectors.TrackingEvent{
			Date:        date,
			Status:      d.EventDesc,
			Location:    d.Address,
			Description: d.EventDesc,
		})
	}
	return &connectors.TrackingInfo{
		TrackingNumber: trackingNumber,
		Status:         mapOrderStatus(resp.Result.Status),
		Events:         events,
		LastUpdated:    time.Now().UTC(),
	}, nil
}

// CalculateShipping queries freight options; any failure is reported in
// the quote since the estimate is advisory.
func (c *Connector) CalculateShipping(ctx context.Context, items []connectors.SupplierOrderItem, address models.Address) *connectors.ShippingQuote {
	freightItems := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		freightItems = append(freightItems, map[string]interface{}{
			"product_id": item.SupplierProductID,
			"quantity":   item.Quantity,
		})
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"country_code": address.Country,
		"product_items": freightItems,
	})

	body, err := c.call(ctx, "aliexpress.ds.freight.query", map[string]string{
		"param_aeop_freight_calculate_for_buyer_d_t_o": string(payload),
	})
	if err != nil {
		return &connectors.ShippingQuote{Error: err.Error()}
	}

	var resp struct {
		Result struct {
			FreightOptions []struct {
				Amount      string `json:"freight_amount"`
				ServiceName string `json:"service_name"`
				MinDays     int    `json:"min_delivery_days"`
				MaxDays     int    `json:"max_delivery_days"`
			} `json:"freight_options"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &connectors.ShippingQuote{Error: "failed to parse freight response: " + err.Error()}
	}
	if len(resp.Result.FreightOptions) == 0 {
		return &connectors.ShippingQuote{Error: "no freight options available"}
	}

	opt := resp.Result.FreightOptions[0]
	return &connectors.ShippingQuote{
		CostCents: decimalToCents(opt.Amount),
		MinDays:   opt.MinDays,
		MaxDays:   opt.MaxDays,
		Carrier:   opt.ServiceName,
	}
}

// SyncInventory refreshes stock one product at a time. A failed lookup
// degrades that id to stock 0.
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

// call performs one signed API request through the retrier and rate
// limiter, returning the raw response body.
func (c *Connector) call(ctx context.Context, method string, apiParams map[string]string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := map[string]string{
		"method":      method,
		"app_key":     c.appKey,
		"timestamp":   strconv.FormatInt(time.Now().UnixMilli(), 10),
		"format":      "json",
		"v":           apiVersion,
		"sign_method": "hmac",
	}
	if c.accessToken != "" {
		params["session"] = c.accessToken
	}
	for k, v := range apiParams {
		params[k] = v
	}
	params["sign"] = c.sign(method, params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	fullURL := c.baseURL + "?" + values.Encode()

	resp, err := c.retrier.DoHTTP(ctx, method, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, &connectors.TransportError{Connector: c.name, Op: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &connectors.TransportError{Connector: c.name, Op: method, Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &connectors.TransportError{Connector: c.name, Op: method, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// sign computes the HMAC-SHA256 signature over the alphabetically
// sorted parameters, the scheme the AliExpress open platform requires.
func (c *Connector) sign(method string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	stringToSign := method + "&" + url.QueryEscape(sb.String())

	mac := hmac.New(sha256.New, []byte(c.appSecret))
	mac.Write([]byte(stringToSign))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// aliProduct is the supplier-native product shape.
type aliProduct struct {
	ProductID     int64    `json:"product_id"`
	Title         string   `json:"product_title"`
	Description   string   `json:"product_description"`
	SalePrice     string   `json:"sale_price"`
	Currency      string   `json:"currency_code"`
	Stock         int      `json:"stock"`
	ImageURLs     string   `json:"product_image_urls"`
	CategoryName  string   `json:"category_name"`
	SKUList       []aliSKU `json:"sku_list"`
	ShippingDays  string   `json:"delivery_time"`
}

type aliSKU struct {
	SKUAttr  string `json:"sku_attr"`
	SKUPrice string `json:"sku_price"`
	SKUStock int    `json:"sku_stock"`
}

func convertProduct(p aliProduct, fallbackCurrency string) connectors.SupplierProduct {
	currency := p.Currency
	if currency == "" {
		currency = fallbackCurrency
	}

	product := connectors.SupplierProduct{
		ID:            strconv.FormatInt(p.ProductID, 10),
		Name:          p.Title,
		Description:   p.Description,
		PriceCents:    decimalToCents(p.SalePrice),
		Currency:      currency,
		StockQuantity: p.Stock,
		Category:      p.CategoryName,
		LastUpdated:   time.Now().UTC(),
	}
	if p.ImageURLs != "" {
		product.Images = strings.Split(p.ImageURLs, ";")
	}
	if p.ShippingDays != "" {
		product.ShippingInfo = map[string]string{"delivery_time": p.ShippingDays}
	}
	for _, sku := range p.SKUList {
		product.Variations = append(product.Variations, connectors.ProductVariation{
			SKU:        sku.SKUAttr,
			PriceCents: decimalToCents(sku.SKUPrice),
			Stock:      sku.SKUStock,
		})
	}
	return product
}

// mapOrderStatus folds the AliExpress order status vocabulary into the
// canonical enum.
func mapOrderStatus(native string) models.OrderStatus {
	switch strings.ToUpper(native) {
	case "PLACE_ORDER_SUCCESS", "WAIT_BUYER_ACCEPT_GOODS_PENDING":
		return models.OrderStatusPending
	case "PAYMENT_SUCCESS", "SELLER_ACCEPTED":
		return models.OrderStatusConfirmed
	case "WAIT_SELLER_SEND_GOODS", "PROCESSING":
		return models.OrderStatusProcessing
	case "SELLER_SEND_GOODS", "WAIT_BUYER_ACCEPT_GOODS", "SHIPPED", "IN_TRANSIT":
		return models.OrderStatusShipped
	case "FINISH", "DELIVERED":
		return models.OrderStatusDelivered
	case "IN_CANCEL", "CANCELLED", "CLOSED":
		return models.OrderStatusCancelled
	case "IN_ISSUE", "FAILED":
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
