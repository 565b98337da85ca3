package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
)

// RoutingStrategy determines how supplier groups are ordered when an
// order is split across suppliers.
type RoutingStrategy string

const (
	StrategyNoDropshipping RoutingStrategy = "NO_DROPSHIPPING"
	StrategySingleSupplier RoutingStrategy = "SINGLE_SUPPLIER"
	StrategyCost           RoutingStrategy = "MULTI_SUPPLIER_COST"
	StrategySpeed          RoutingStrategy = "MULTI_SUPPLIER_SPEED"
	StrategyHybrid         RoutingStrategy = "HYBRID"
)

// Strategy thresholds in minor currency units. Kept as constants; no
// configuration surface for them today.
const (
	highValueThresholdCents int64 = 100000
	lowValueThresholdCents  int64 = 20000
)

// Hybrid score weights: cost dominates, delivery time tempers it.
const (
	hybridCostWeight = 0.6
	hybridTimeWeight = 0.4
)

// SupplierGroup is one supplier's slice of an order.
type SupplierGroup struct {
	Supplier      *models.Supplier   `json:"supplier"`
	Items         []models.OrderItem `json:"items"`
	SubtotalCents int64              `json:"subtotalCents"`
	Quantity      int                `json:"quantity"`
	HybridScore   float64            `json:"hybridScore,omitempty"`
}

// EstimatedShippingDays is the average of the supplier's min/max window.
func (g *SupplierGroup) EstimatedShippingDays() float64 {
	return g.Supplier.AverageShippingDays()
}

// RoutingAnalysis is the item breakdown routing decisions are made from.
type RoutingAnalysis struct {
	OrderID         uuid.UUID          `json:"orderId"`
	TotalItems      int                `json:"totalItems"`
	TotalCents      int64              `json:"totalCents"`
	Groups          []*SupplierGroup   `json:"groups"`
	OwnStockItems   []models.OrderItem `json:"ownStockItems"`
	Strategy        RoutingStrategy    `json:"strategy"`
}

// SupplierOrderResult is the per-supplier outcome of one routing run.
type SupplierOrderResult struct {
	SubOrderID      uuid.UUID `json:"subOrderId"`
	SupplierID      uuid.UUID `json:"supplierId"`
	SupplierName    string    `json:"supplierName"`
	Success         bool      `json:"success"`
	SupplierOrderID string    `json:"supplierOrderId,omitempty"`
	TrackingNumber  string    `json:"trackingNumber,omitempty"`
	ItemCount       int       `json:"itemCount"`
	SubtotalCents   int64     `json:"subtotalCents"`
	ErrorCode       string    `json:"errorCode,omitempty"`
	Message         string    `json:"message,omitempty"`
}

// RoutingResult is the report returned by RouteOrder.
type RoutingResult struct {
	OrderID            uuid.UUID             `json:"orderId"`
	Strategy           RoutingStrategy       `json:"routingStrategy"`
	SupplierOrders     []SupplierOrderResult `json:"supplierOrders"`
	DropshippingOrders []uuid.UUID           `json:"dropshippingOrders"`
	TotalOrders        int                   `json:"totalOrders"`
	SuccessfulOrders   int                   `json:"successfulOrders"`
	RoutedAt           time.Time             `json:"routedAt"`
}

// RoutingOption is one dry-run strategy evaluation.
type RoutingOption struct {
	Strategy               RoutingStrategy       `json:"strategy"`
	SupplierCount          int                   `json:"supplierCount"`
	Suppliers              []RoutingOptionDetail `json:"suppliers"`
	TotalShippingCostCents int64                 `json:"totalShippingCostCents"`
	EstimatedDeliveryDays  float64               `json:"estimatedDeliveryDays"`
	RecommendationScore    int                   `json:"recommendationScore"`
}

// RoutingOptionDetail summarizes one supplier within an option.
type RoutingOptionDetail struct {
	SupplierID        uuid.UUID `json:"supplierId"`
	SupplierName      string    `json:"supplierName"`
	ItemCount         int       `json:"itemCount"`
	SubtotalCents     int64     `json:"subtotalCents"`
	ShippingCostCents int64     `json:"shippingCostCents"`
	EstimatedDays     float64   `json:"estimatedDays"`
}

// RoutingOptions is the dry-run response, options sorted by score.
type RoutingOptions struct {
	OrderID             uuid.UUID        `json:"orderId"`
	HasDropshipping     bool             `json:"hasDropshippingItems"`
	Analysis            *RoutingAnalysis `json:"analysis,omitempty"`
	Options             []RoutingOption  `json:"routingOptions,omitempty"`
	RecommendedStrategy RoutingStrategy  `json:"recommendedStrategy,omitempty"`
	Message             string           `json:"message,omitempty"`
}

// RoutingAnalytics aggregates recent routing activity.
type RoutingAnalytics struct {
	Since        time.Time                       `json:"since"`
	ByStrategy   []repository.StrategyCount      `json:"byStrategy"`
	BySupplier   []repository.SupplierOrderStats `json:"bySupplier"`
	GeneratedAt  time.Time                       `json:"generatedAt"`
}

// RoutingService splits orders across suppliers and dispatches the
// resulting sub-orders through registered connectors.
type RoutingService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	supplierRepo repository.SupplierRepository
	registry     *connectors.Registry
	logger       *logrus.Entry
}

// NewRoutingService creates a routing service.
func NewRoutingService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	supplierRepo repository.SupplierRepository,
	registry *connectors.Registry,
	logger *logrus.Entry,
) *RoutingService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RoutingService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		supplierRepo: supplierRepo,
		registry:     registry,
		logger:       logger.WithField("service", "routing"),
	}
}

// AnalyzeOrder groups order items by supplier and picks the strategy.
// Items whose product has no supplier linkage stay in the own-stock
// bucket and are never dispatched.
func (s *RoutingService) AnalyzeOrder(ctx context.Context, orderID uuid.UUID) (*RoutingAnalysis, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s not found: %w", orderID, err)
	}
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("order %s has no items", orderID)
	}

	productIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	productsByID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		productsByID[products[i].ID] = &products[i]
	}

	analysis := &RoutingAnalysis{
		OrderID:    orderID,
		TotalItems: len(order.Items),
	}

	// Groups keep first-seen item order so ties stay deterministic.
	groupIndex := make(map[uuid.UUID]int)
	supplierCache := make(map[uuid.UUID]*models.Supplier)

	for _, item := range order.Items {
		analysis.TotalCents += item.TotalCents()

		product := productsByID[item.ProductID]
		if product == nil || !product.IsDropshipping() {
			analysis.OwnStockItems = append(analysis.OwnStockItems, item)
			continue
		}

		supplierID := *product.SupplierID
		supplier, ok := supplierCache[supplierID]
		if !ok {
			supplier, err = s.supplierRepo.GetByID(ctx, supplierID)
			if err != nil || !supplier.IsActive {
				supplier = nil
			}
			supplierCache[supplierID] = supplier
		}
		if supplier == nil {
			analysis.OwnStockItems = append(analysis.OwnStockItems, item)
			continue
		}

		idx, seen := groupIndex[supplierID]
		if !seen {
			idx = len(analysis.Groups)
			groupIndex[supplierID] = idx
			analysis.Groups = append(analysis.Groups, &SupplierGroup{Supplier: supplier})
		}
		group := analysis.Groups[idx]
		group.Items = append(group.Items, item)
		group.SubtotalCents += item.TotalCents()
		group.Quantity += item.Quantity
	}

	analysis.Strategy = determineStrategy(len(analysis.Groups), analysis.TotalCents)
	return analysis, nil
}

func determineStrategy(supplierCount int, totalCents int64) RoutingStrategy {
	switch {
	case supplierCount == 0:
		return StrategyNoDropshipping
	case supplierCount == 1:
		return StrategySingleSupplier
	case totalCents > highValueThresholdCents:
		return StrategySpeed
	case totalCents < lowValueThresholdCents:
		return StrategyCost
	default:
		return StrategyHybrid
	}
}

// orderGroups returns the groups in dispatch order for the strategy.
// Sorts are stable so equal suppliers keep first-seen order.
func orderGroups(groups []*SupplierGroup, strategy RoutingStrategy) []*SupplierGroup {
	ordered := append([]*SupplierGroup(nil), groups...)

	switch strategy {
	case StrategyCost:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Supplier.ShippingCostCents < ordered[j].Supplier.ShippingCostCents
		})
	case StrategySpeed:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].EstimatedShippingDays() < ordered[j].EstimatedShippingDays()
		})
	case StrategyHybrid:
		var maxCost int64
		var maxDays float64
		for _, g := range ordered {
			if g.Supplier.ShippingCostCents > maxCost {
				maxCost = g.Supplier.ShippingCostCents
			}
			if d := g.EstimatedShippingDays(); d > maxDays {
				maxDays = d
			}
		}
		for _, g := range ordered {
			var costScore, timeScore float64
			if maxCost > 0 {
				costScore = float64(g.Supplier.ShippingCostCents) / float64(maxCost)
			}
			if maxDays > 0 {
				timeScore = g.EstimatedShippingDays() / maxDays
			}
			g.HybridScore = costScore*hybridCostWeight + timeScore*hybridTimeWeight
		}
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].HybridScore < ordered[j].HybridScore
		})
	}
	return ordered
}

// RouteOrder analyzes, splits, and dispatches an order. Every supplier
// group is dispatched regardless of strategy; ordering only controls
// dispatch sequence. Connector failures are contained per group and
// reported, never propagated.
func (s *RoutingService) RouteOrder(ctx context.Context, orderID uuid.UUID) (*RoutingResult, error) {
	analysis, err := s.AnalyzeOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result := &RoutingResult{
		OrderID:  orderID,
		Strategy: analysis.Strategy,
		RoutedAt: time.Now().UTC(),
	}

	if analysis.Strategy == StrategyNoDropshipping {
		s.logger.WithField("order_id", orderID).Info("order has no dropshipping items, routing is a no-op")
		return result, nil
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Routing an order twice would dispatch its groups twice.
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusConfirmed {
		return nil, fmt.Errorf("order %s cannot be routed in status %s", orderID, order.Status)
	}

	if err := s.orderRepo.SetRoutingStrategy(ctx, orderID, string(analysis.Strategy)); err != nil {
		return nil, fmt.Errorf("failed to record routing strategy: %w", err)
	}

	ordered := orderGroups(analysis.Groups, analysis.Strategy)
	for _, group := range ordered {
		result.SupplierOrders = append(result.SupplierOrders, s.dispatchGroup(ctx, order, group))
	}

	result.TotalOrders = len(result.SupplierOrders)
	for _, r := range result.SupplierOrders {
		if r.Success {
			result.SuccessfulOrders++
		}
		if r.SubOrderID != uuid.Nil {
			result.DropshippingOrders = append(result.DropshippingOrders, r.SubOrderID)
		}
	}

	// Parent moves to processing once dispatch was attempted, even if
	// some groups failed.
	if err := s.orderRepo.UpdateStatus(ctx, orderID, models.OrderStatusProcessing); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to update parent order status")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"strategy":   analysis.Strategy,
		"dispatched": result.TotalOrders,
		"successful": result.SuccessfulOrders,
	}).Info("order routing complete")

	return result, nil
}

// dispatchGroup creates one sub-order and sends it through the
// supplier's connector.
func (s *RoutingService) dispatchGroup(ctx context.Context, order *models.Order, group *SupplierGroup) SupplierOrderResult {
	supplier := group.Supplier

	subOrder := &models.SupplierSubOrder{
		ID:            uuid.New(),
		OrderID:       order.ID,
		SupplierID:    supplier.ID,
		Status:        models.OrderStatusPending,
		ItemCount:     len(group.Items),
		SubtotalCents: group.SubtotalCents,
		Notes:         fmt.Sprintf("auto-routed, %d items", len(group.Items)),
	}
	if err := s.orderRepo.CreateSubOrder(ctx, subOrder); err != nil {
		return SupplierOrderResult{
			SupplierID:   supplier.ID,
			SupplierName: supplier.Name,
			Success:      false,
			ErrorCode:    "SUB_ORDER_CREATE_FAILED",
			Message:      err.Error(),
		}
	}

	result := SupplierOrderResult{
		SubOrderID:    subOrder.ID,
		SupplierID:    supplier.ID,
		SupplierName:  supplier.Name,
		ItemCount:     len(group.Items),
		SubtotalCents: group.SubtotalCents,
	}

	connector, ok := s.registry.Get(supplier.Name)
	if !ok {
		result.ErrorCode = "CONNECTOR_NOT_FOUND"
		result.Message = fmt.Sprintf("no active connector for supplier %s", supplier.Name)
		s.failSubOrder(ctx, subOrder.ID, result.ErrorCode, result.Message)
		return result
	}

	items := make([]connectors.SupplierOrderItem, 0, len(group.Items))
	for _, item := range group.Items {
		items = append(items, connectors.SupplierOrderItem{
			SupplierProductID: item.SupplierProductID,
			Quantity:          item.Quantity,
			UnitPriceCents:    item.UnitPriceCents,
		})
	}

	resp, err := connector.CreateOrder(ctx, &connectors.SupplierOrder{
		ID:              subOrder.ID.String(),
		Items:           items,
		ShippingAddress: order.ShippingAddress,
	})
	if err != nil {
		result.ErrorCode = "ORDER_CREATION_FAILED"
		result.Message = err.Error()
		s.failSubOrder(ctx, subOrder.ID, result.ErrorCode, result.Message)
		s.logSupplierError(ctx, supplier.ID, err.Error())
		return result
	}

	rawResp, _ := json.Marshal(resp)
	if !resp.Success {
		result.ErrorCode = resp.ErrorCode
		result.Message = resp.Message
		if updErr := s.orderRepo.SetSubOrderDispatchResult(ctx, subOrder.ID, "", "", datatypes.JSON(rawResp)); updErr != nil {
			s.logger.WithError(updErr).Warn("failed to persist supplier response")
		}
		s.failSubOrder(ctx, subOrder.ID, resp.ErrorCode, resp.Message)
		return result
	}

	if err := s.orderRepo.SetSubOrderDispatchResult(ctx, subOrder.ID, resp.SupplierOrderID, resp.TrackingNumber, datatypes.JSON(rawResp)); err != nil {
		s.logger.WithError(err).Warn("failed to persist dispatch result")
	}
	if err := s.orderRepo.UpdateSubOrderStatus(ctx, subOrder.ID, models.OrderStatusConfirmed); err != nil {
		s.logger.WithError(err).Warn("failed to confirm sub-order")
	}

	result.Success = true
	result.SupplierOrderID = resp.SupplierOrderID
	result.TrackingNumber = resp.TrackingNumber
	result.Message = resp.Message
	return result
}

func (s *RoutingService) failSubOrder(ctx context.Context, subOrderID uuid.UUID, code, message string) {
	if err := s.orderRepo.UpdateSubOrderStatus(ctx, subOrderID, models.OrderStatusFailed); err != nil {
		s.logger.WithError(err).WithField("sub_order_id", subOrderID).Warn("failed to mark sub-order failed")
	}
	notes := message
	if code != "" {
		notes = code + ": " + message
	}
	if err := s.orderRepo.SetSubOrderNotes(ctx, subOrderID, notes); err != nil {
		s.logger.WithError(err).WithField("sub_order_id", subOrderID).Warn("failed to record sub-order notes")
	}
}

func (s *RoutingService) logSupplierError(ctx context.Context, supplierID uuid.UUID, message string) {
	if err := s.supplierRepo.MarkError(ctx, supplierID, message); err != nil {
		s.logger.WithError(err).WithField("supplier_id", supplierID).Warn("failed to record supplier error")
	}
}

// GetRoutingOptions evaluates every applicable strategy without
// mutating any state, sorted by recommendation score descending.
func (s *RoutingService) GetRoutingOptions(ctx context.Context, orderID uuid.UUID) (*RoutingOptions, error) {
	analysis, err := s.AnalyzeOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if len(analysis.Groups) == 0 {
		return &RoutingOptions{
			OrderID:         orderID,
			HasDropshipping: false,
			Message:         "order has no dropshipping items",
		}, nil
	}

	candidates := []RoutingStrategy{StrategySingleSupplier, StrategyCost, StrategySpeed, StrategyHybrid}
	options := make([]RoutingOption, 0, len(candidates))

	for _, strategy := range candidates {
		if strategy == StrategySingleSupplier && len(analysis.Groups) > 1 {
			continue
		}

		ordered := orderGroups(analysis.Groups, strategy)

		option := RoutingOption{
			Strategy:      strategy,
			SupplierCount: len(ordered),
		}
		var totalDays float64
		for _, g := range ordered {
			option.Suppliers = append(option.Suppliers, RoutingOptionDetail{
				SupplierID:        g.Supplier.ID,
				SupplierName:      g.Supplier.Name,
				ItemCount:         len(g.Items),
				SubtotalCents:     g.SubtotalCents,
				ShippingCostCents: g.Supplier.ShippingCostCents,
				EstimatedDays:     g.EstimatedShippingDays(),
			})
			option.TotalShippingCostCents += g.Supplier.ShippingCostCents
			totalDays += g.EstimatedShippingDays()
		}
		option.EstimatedDeliveryDays = totalDays / float64(len(ordered))
		option.RecommendationScore = recommendationScore(strategy, len(ordered), analysis.TotalCents)
		options = append(options, option)
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].RecommendationScore > options[j].RecommendationScore
	})

	result := &RoutingOptions{
		OrderID:         orderID,
		HasDropshipping: true,
		Analysis:        analysis,
		Options:         options,
	}
	if len(options) > 0 {
		result.RecommendedStrategy = options[0].Strategy
	}
	return result, nil
}

// recommendationScore rates a strategy 0-100 for the given order shape.
func recommendationScore(strategy RoutingStrategy, supplierCount int, totalCents int64) int {
	score := 50

	switch strategy {
	case StrategySingleSupplier:
		score += 20
	case StrategySpeed:
		score += 15
	case StrategyCost:
		score += 10
	case StrategyHybrid:
		score += 25
	}

	if supplierCount > 3 {
		score -= 10
	}

	if totalCents > highValueThresholdCents {
		if strategy == StrategySpeed || strategy == StrategyHybrid {
			score += 10
		}
	} else if totalCents < lowValueThresholdCents {
		if strategy == StrategyCost || strategy == StrategySingleSupplier {
			score += 10
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// GetRoutingAnalytics aggregates routing activity since the given time.
func (s *RoutingService) GetRoutingAnalytics(ctx context.Context, since time.Time) (*RoutingAnalytics, error) {
	byStrategy, err := s.orderRepo.RoutingStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy stats: %w", err)
	}
	bySupplier, err := s.orderRepo.SubOrderStatsBySupplier(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier stats: %w", err)
	}
	return &RoutingAnalytics{
		Since:       since,
		ByStrategy:  byStrategy,
		BySupplier:  bySupplier,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
