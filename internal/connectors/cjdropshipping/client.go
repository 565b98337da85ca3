package cjdropshipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
)

const defaultBaseURL = "https://developers.cjdropshipping.com/api2.0/v1"

// Connector implements SupplierConnector for the CJ Dropshipping API.
// CJ issues short-lived access tokens in exchange for the account email
// and API key; the token is cached and refreshed on expiry.
type Connector struct {
	httpClient  *http.Client
	retrier     *connectors.Retrier
	rateLimiter *rate.Limiter

	name    string
	email   string
	apiKey  string
	baseURL string

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a CJ Dropshipping connector. The account email is
// expected in cfg.Extra["email"].
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
		rateLimiter: rate.NewLimiter(rate.Limit(1), 1),
		name:        cfg.Name,
		email:       cfg.Extra["email"],
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
	if c.name == "" {
		c.name = "cj_dropshipping"
	}
	return c
}

func (c *Connector) Name() string {
	return c.name
}

func (c *Connector) Type() models.SupplierType {
	return models.SupplierCJ
}

func (c *Connector) Info() connectors.ConnectorInfo {
	return connectors.ConnectorInfo{
		Name:       c.name,
		Type:       models.SupplierCJ,
		BaseURL:    c.baseURL,
		Timeout:    c.httpClient.Timeout,
		MaxRetries: connectors.DefaultRetryConfig().MaxRetries,
	}
}

// Authenticate exchanges the credentials for an access token. Bad
// credentials fail closed; transport problems surface as errors.
func (c *Connector) Authenticate(ctx context.Context) (bool, error) {
	if c.email == "" {
		return false, &connectors.ConfigurationError{Connector: c.name, Field: "email"}
	}
	if c.apiKey == "" {
		return false, &connectors.ConfigurationError{Connector: c.name, Field: "api_key"}
	}

	if err := c.refreshToken(ctx); err != nil {
		if connectors.IsTransportError(err) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// refreshToken fetches a new access token. Callers hold no lock; the
// token fields are guarded internally.
func (c *Connector) refreshToken(ctx context.Context) error {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	payload, _ := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.apiKey,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authentication/getAccessToken", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &connectors.TransportError{Connector: c.name, Op: "getAccessToken", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &connectors.TransportError{Connector: c.name, Op: "getAccessToken", StatusCode: resp.StatusCode}
	}

	var tokenResp struct {
		Result  bool   `json:"result"`
		Message string `json:"message"`
		Data    struct {
			AccessToken       string `json:"accessToken"`
			AccessTokenExpiry string `json:"accessTokenExpiryDate"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}
	if !tokenResp.Result || tokenResp.Data.AccessToken == "" {
		return fmt.Errorf("token exchange rejected: %s", tokenResp.Message)
	}

	c.accessToken = tokenResp.Data.AccessToken
	c.tokenExpiry = time.Now().Add(12 * time.Hour)
	if expiry, err := time.Parse(time.RFC3339, tokenResp.Data.AccessTokenExpiry); err == nil {
		c.tokenExpiry = expiry.Add(-5 * time.Minute)
	}
	return nil
}

func (c *Connector) SearchProducts(ctx context.Context, query string, filters *connectors.SearchFilters) ([]connectors.SupplierProduct, error) {
	values := url.Values{}
	values.Set("productNameEn", query)
	values.Set("pageSize", "20")
	if filters != nil {
		if filters.Category != "" {
			values.Set("categoryId", filters.Category)
		}
		if filters.MinPriceCents > 0 {
			values.Set("minPrice", centsToDecimal(filters.MinPriceCents))
		}
		if filters.MaxPriceCents > 0 {
			values.Set("maxPrice", centsToDecimal(filters.MaxPriceCents))
		}
		if filters.Limit > 0 {
			values.Set("pageSize", strconv.Itoa(filters.Limit))
		}
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/product/list?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			List []cjProduct `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse product list: %w", err)
	}

	products := make([]connectors.SupplierProduct, 0, len(resp.Data.List))
	for _, p := range resp.Data.List {
		products = append(products, convertProduct(p))
	}
	return products, nil
}

func (c *Connector) GetProductDetails(ctx context.Context, productID string) (*connectors.SupplierProduct, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/product/query?pid="+url.QueryEscape(productID), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result bool       `json:"result"`
		Data   *cjProduct `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse product query: %w", err)
	}
	if !resp.Result || resp.Data == nil {
		return nil, nil
	}
	product := convertProduct(*resp.Data)
	return &product, nil
}

func (c *Connector) CreateOrder(ctx context.Context, order *connectors.SupplierOrder) (*connectors.OrderResponse, error) {
	products := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, map[string]interface{}{
			"vid":      item.VariationSKU,
			"pid":      item.SupplierProductID,
			"quantity": item.Quantity,
		})
	}
	payload := map[string]interface{}{
		"orderNumber":     order.ID,
		"shippingCustomerName": order.ShippingAddress.FullName,
		"shippingAddress": order.ShippingAddress.AddressLine1,
		"shippingAddress2": order.ShippingAddress.AddressLine2,
		"shippingCity":    order.ShippingAddress.City,
		"shippingProvince": order.ShippingAddress.State,
		"shippingZip":     order.ShippingAddress.PostalCode,
		"shippingCountryCode": order.ShippingAddress.Country,
		"shippingPhone":   order.ShippingAddress.Phone,
		"products":        products,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/shopping/order/createOrder", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}

	if !resp.Result || resp.Data.OrderID == "" {
		message := resp.Message
		if message == "" {
			message = "order rejected by supplier"
		}
		return &connectors.OrderResponse{
			Success:   false,
			Message:   message,
			ErrorCode: fmt.Sprintf("CJ_%d", resp.Code),
		}, nil
	}

	return &connectors.OrderResponse{
		Success:         true,
		SupplierOrderID: resp.Data.OrderID,
		Message:         fmt.Sprintf("order accepted with %d items", len(order.Items)),
	}, nil
}

func (c *Connector) GetOrderStatus(ctx context.Context, supplierOrderID string) (models.OrderStatus, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/shopping/order/getOrderDetail?orderId="+url.QueryEscape(supplierOrderID), nil)
	if err != nil {
		return models.OrderStatusPending, err
	}

	var resp struct {
		Data struct {
			OrderStatus string `json:"orderStatus"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.OrderStatusPending, fmt.Errorf("failed to parse order detail: %w", err)
	}
	return mapOrderStatus(resp.Data.OrderStatus), nil
}

func (c *Connector) GetTrackingInfo(ctx context.Context, trackingNumber string) (*connectors.TrackingInfo, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/logistic/trackInfo?trackNumber="+url.QueryEscape(trackingNumber), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result bool `json:"result"`
		Data   []struct {
			TrackingStatus string `json:"trackingStatus"`
			LogisticName   string `json:"logisticName"`
			Details        []struct {
				Date    string `json:"date"`
				Status  string `json:"status"`
				Address string `json:"address"`
			} `json:"trackingDetails"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tracking response: %w", err)
	}
	if !resp.Result || len(resp.Data) == 0 {
		return nil, nil
	}

	record := resp.Data[0]
	events := make([]connectors.TrackingEvent, 0, len(record.Details))
	for _, d := range record.Details {
		date, _ := time.Parse("2006-01-02 15:04:05", d.Date)
		events = append(events, connectors.TrackingEvent{
			Date:        date,
			Status:      d.Status,
			Location:    d.Address,
			Description: d.Status,
		})
	}
	return &connectors.TrackingInfo{
		TrackingNumber: trackingNumber,
		Carrier:        record.LogisticName,
		Status:         mapOrderStatus(record.TrackingStatus),
		Events:         events,
		LastUpdated:    time.Now().UTC(),
	}, nil
}

func (c *Connector) CalculateShipping(ctx context.Context, items []connectors.SupplierOrderItem, address models.Address) *connectors.ShippingQuote {
	products := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		products = append(products, map[string]interface{}{
			"vid":      item.VariationSKU,
			"quantity": item.Quantity,
		})
	}
	payload := map[string]interface{}{
		"startCountryCode": "CN",
		"endCountryCode":   address.Country,
		"products":         products,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/logistic/freightCalculate", payload)
	if err != nil {
		return &connectors.ShippingQuote{Error: err.Error()}
	}

	var resp struct {
		Data []struct {
			LogisticPrice string `json:"logisticPrice"`
			LogisticName  string `json:"logisticName"`
			Aging         string `json:"logisticAging"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &connectors.ShippingQuote{Error: "failed to parse freight response: " + err.Error()}
	}
	if len(resp.Data) == 0 {
		return &connectors.ShippingQuote{Error: "no freight options available"}
	}

	opt := resp.Data[0]
	minDays, maxDays := parseAging(opt.Aging)
	return &connectors.ShippingQuote{
		CostCents: decimalToCents(opt.LogisticPrice),
		MinDays:   minDays,
		MaxDays:   maxDays,
		Carrier:   opt.LogisticName,
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

// doRequest performs one token-authenticated request, refreshing the
// access token first when needed.
func (c *Connector) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if err := c.refreshToken(ctx); err != nil {
		return nil, err
	}
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
		c.tokenMu.Lock()
		req.Header.Set("CJ-Access-Token", c.accessToken)
		c.tokenMu.Unlock()
		req.Header.Set("Accept", "application/json")
		if encoded != nil {
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

type cjProduct struct {
	PID        string `json:"pid"`
	NameEn     string `json:"productNameEn"`
	Description string `json:"description"`
	SellPrice  string `json:"sellPrice"`
	Stock      int    `json:"totalInventoryNum"`
	Image      string `json:"productImage"`
	Category   string `json:"categoryName"`
	Variants   []struct {
		VID       string `json:"vid"`
		SellPrice string `json:"variantSellPrice"`
		Stock     int    `json:"inventoryNum"`
		Key       string `json:"variantKey"`
	} `json:"variants"`
}

func convertProduct(p cjProduct) connectors.SupplierProduct {
	product := connectors.SupplierProduct{
		ID:            p.PID,
		Name:          p.NameEn,
		Description:   p.Description,
		PriceCents:    decimalToCents(p.SellPrice),
		Currency:      "USD",
		StockQuantity: p.Stock,
		Category:      p.Category,
		LastUpdated:   time.Now().UTC(),
	}
	if p.Image != "" {
		product.Images = []string{p.Image}
	}
	for _, v := range p.Variants {
		product.Variations = append(product.Variations, connectors.ProductVariation{
			SKU:        v.VID,
			PriceCents: decimalToCents(v.SellPrice),
			Stock:      v.Stock,
			Attributes: map[string]string{"variant": v.Key},
		})
	}
	return product
}

func mapOrderStatus(native string) models.OrderStatus {
	switch strings.ToUpper(native) {
	case "CREATED", "UNPAID":
		return models.OrderStatusPending
	case "PAID", "IN_CART":
		return models.OrderStatusConfirmed
	case "PROCESSING", "UNSHIPPED":
		return models.OrderStatusProcessing
	case "SHIPPED", "IN_TRANSIT":
		return models.OrderStatusShipped
	case "DELIVERED":
		return models.OrderStatusDelivered
	case "CANCELLED":
		return models.OrderStatusCancelled
	case "FAILED":
		return models.OrderStatusFailed
	default:
		return models.OrderStatusPending
	}
}

// parseAging extracts a day range from strings like "7-15" or "10".
func parseAging(aging string) (int, int) {
	parts := strings.SplitN(strings.TrimSpace(aging), "-", 2)
	min, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	max := min
	if len(parts) == 2 {
		max, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return min, max
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
