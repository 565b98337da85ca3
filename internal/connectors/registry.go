package connectors

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry holds named, authenticated connector instances for the
// lifetime of the process. Registered live connectors are not persisted;
// a restart requires re-registration. The registry is constructed
// explicitly and passed to its consumers.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]SupplierConnector
	active     map[string]bool
	order      []string // registration order, the stable iteration order
	logger     *logrus.Entry
}

// RegisteredConnector is one entry of a registry listing.
type RegisteredConnector struct {
	Name   string        `json:"name"`
	Info   ConnectorInfo `json:"info"`
	Active bool          `json:"active"`
}

// ConnectorHealth is the per-connector slice of a health report.
type ConnectorHealth struct {
	Status string        `json:"status"`
	Active bool          `json:"active"`
	Info   ConnectorInfo `json:"info"`
	Error  string        `json:"error,omitempty"`
}

// HealthReport summarizes the state of every registered connector.
type HealthReport struct {
	TotalConnectors  int                        `json:"totalConnectors"`
	ActiveConnectors int                        `json:"activeConnectors"`
	Connectors       map[string]ConnectorHealth `json:"connectors"`
}

// BestSupplierCriteria selects the scoring mode of FindBestSupplier.
type BestSupplierCriteria struct {
	Priority    string  // "price", "stock", or "" for composite
	PriceWeight float64 // composite weight for price, default 0.7
	StockWeight float64 // composite weight for stock, default 0.3
}

// BestSupplierMatch is the winning product of a FindBestSupplier run.
type BestSupplierMatch struct {
	Supplier string          `json:"supplier"`
	Product  SupplierProduct `json:"product"`
	Score    float64         `json:"score"`
}

// NewRegistry creates an empty connector registry.
func NewRegistry(logger *logrus.Entry) *Registry {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		connectors: make(map[string]SupplierConnector),
		active:     make(map[string]bool),
		logger:     logger,
	}
}

// Register authenticates the connector and stores it on success.
// Returns false (no error) when the supplier rejects the credentials;
// returns an error only for configuration problems.
func (r *Registry) Register(ctx context.Context, name string, connector SupplierConnector) (bool, error) {
	ok, err := connector.Authenticate(ctx)
	if err != nil {
		if IsConfigurationError(err) {
			return false, err
		}
		// Transport failures fail registration closed, like a rejected credential
		r.logger.WithFields(logrus.Fields{"connector": name, "error": err}).Warn("connector authentication errored")
		return false, nil
	}
	if !ok {
		r.logger.WithField("connector", name).Warn("connector authentication rejected")
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connectors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.connectors[name] = connector
	r.active[name] = true
	r.logger.WithField("connector", name).Info("connector registered")
	return true, nil
}

// Unregister removes a connector. Returns false when it was not registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connectors[name]; !ok {
		return false
	}
	delete(r.connectors, name)
	delete(r.active, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.WithField("connector", name).Info("connector unregistered")
	return true
}

// Get returns a registered connector by name.
func (r *Registry) Get(name string) (SupplierConnector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connector, ok := r.connectors[name]
	return connector, ok
}

// List returns every registered connector in registration order.
func (r *Registry) List() []RegisteredConnector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]RegisteredConnector, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, RegisteredConnector{
			Name:   name,
			Info:   r.connectors[name].Info(),
			Active: r.active[name],
		})
	}
	return list
}

// ActiveNames returns active connector names in registration order.
func (r *Registry) ActiveNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.active[name] {
			names = append(names, name)
		}
	}
	return names
}

// SearchAll queries every active connector independently. A connector
// failure is recorded as an empty result for that connector and never
// aborts the fan-out.
func (r *Registry) SearchAll(ctx context.Context, query string, filters *SearchFilters) map[string][]SupplierProduct {
	results := make(map[string][]SupplierProduct)
	for _, name := range r.ActiveNames() {
		connector, ok := r.Get(name)
		if !ok {
			continue
		}
		products, err := connector.SearchProducts(ctx, query, filters)
		if err != nil {
			r.logger.WithFields(logrus.Fields{"connector": name, "error": err}).Error("search failed")
			results[name] = []SupplierProduct{}
			continue
		}
		results[name] = products
	}
	return results
}

// SyncInventoryAll refreshes stock across connectors. productMapping
// maps connector name to the supplier product ids to refresh. A failed
// connector contributes an empty map.
func (r *Registry) SyncInventoryAll(ctx context.Context, productMapping map[string][]string) map[string]map[string]int {
	results := make(map[string]map[string]int)
	for name, productIDs := range productMapping {
		connector, ok := r.Get(name)
		if !ok {
			continue
		}
		inventory, err := connector.SyncInventory(ctx, productIDs)
		if err != nil {
			r.logger.WithFields(logrus.Fields{"connector": name, "error": err}).Error("inventory sync failed")
			results[name] = map[string]int{}
			continue
		}
		results[name] = inventory
	}
	return results
}

// CreateOrderWith dispatches a sub-order to one named connector,
// converting a missing connector or a transport failure into a
// structured failure response.
func (r *Registry) CreateOrderWith(ctx context.Context, name string, order *SupplierOrder) *OrderResponse {
	connector, ok := r.Get(name)
	if !ok {
		return &OrderResponse{
			Success:   false,
			Message:   "connector " + name + " not registered",
			ErrorCode: "CONNECTOR_NOT_FOUND",
		}
	}

	resp, err := connector.CreateOrder(ctx, order)
	if err != nil {
		r.logger.WithFields(logrus.Fields{"connector": name, "error": err}).Error("create order failed")
		return &OrderResponse{
			Success:   false,
			Message:   "order creation failed: " + err.Error(),
			ErrorCode: "ORDER_CREATION_FAILED",
		}
	}
	return resp
}

// TrackingFrom fetches tracking info from one named connector. Returns
// nil when the connector is missing or the lookup fails.
func (r *Registry) TrackingFrom(ctx context.Context, name string, trackingNumber string) *TrackingInfo {
	connector, ok := r.Get(name)
	if !ok {
		return nil
	}
	info, err := connector.GetTrackingInfo(ctx, trackingNumber)
	if err != nil {
		r.logger.WithFields(logrus.Fields{"connector": name, "tracking": trackingNumber, "error": err}).Warn("tracking lookup failed")
		return nil
	}
	return info
}

// HealthCheck re-authenticates every connector. Operational use only,
// not on the request hot path.
func (r *Registry) HealthCheck(ctx context.Context) *HealthReport {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	r.mu.RUnlock()

	report := &HealthReport{Connectors: make(map[string]ConnectorHealth)}
	for _, name := range names {
		connector, ok := r.Get(name)
		if !ok {
			continue
		}
		report.TotalConnectors++

		health := ConnectorHealth{Info: connector.Info()}
		ok, err := connector.Authenticate(ctx)
		switch {
		case err != nil:
			health.Status = "error"
			health.Error = err.Error()
		case ok:
			health.Status = "healthy"
			health.Active = true
			report.ActiveConnectors++
		default:
			health.Status = "unhealthy"
		}
		report.Connectors[name] = health
	}
	return report
}

// FindBestSupplier searches every active connector and scores each
// returned product with a weighted function of price (lower better) and
// stock depth (higher better, capped). Ties keep the first-seen product.
func (r *Registry) FindBestSupplier(ctx context.Context, query string, criteria *BestSupplierCriteria) *BestSupplierMatch {
	if criteria == nil {
		criteria = &BestSupplierCriteria{Priority: "price"}
	}

	allResults := r.SearchAll(ctx, query, nil)

	var best *BestSupplierMatch
	for _, name := range r.ActiveNames() {
		for _, product := range allResults[name] {
			score := scoreProduct(product, criteria)
			if best == nil {
				best = &BestSupplierMatch{Supplier: name, Product: product, Score: score}
				continue
			}
			if criteria.Priority == "price" {
				if score < best.Score {
					best = &BestSupplierMatch{Supplier: name, Product: product, Score: score}
				}
			} else if score > best.Score {
				best = &BestSupplierMatch{Supplier: name, Product: product, Score: score}
			}
		}
	}
	return best
}

func scoreProduct(product SupplierProduct, criteria *BestSupplierCriteria) float64 {
	switch criteria.Priority {
	case "price":
		return float64(product.PriceCents)
	case "stock":
		return float64(product.StockQuantity)
	default:
		priceWeight := criteria.PriceWeight
		stockWeight := criteria.StockWeight
		if priceWeight == 0 && stockWeight == 0 {
			priceWeight, stockWeight = 0.7, 0.3
		}

		// Lower price scores higher; stock depth is capped at 100 units
		priceScore := 1 / (float64(product.PriceCents)/100 + 1)
		stockScore := float64(product.StockQuantity) / 100
		if stockScore > 1 {
			stockScore = 1
		}
		return priceScore*priceWeight + stockScore*stockWeight
	}
}
