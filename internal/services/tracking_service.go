package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
)

// carrierPattern pairs a carrier name with its tracking number format.
// Order matters: jadlog's 14-digit format is a subset of fedex's 12-14
// digits, so the more specific pattern must come first.
type carrierPattern struct {
	name    string
	pattern *regexp.Regexp
}

var carrierPatterns = []carrierPattern{
	{"correios", regexp.MustCompile(`^[A-Z]{2}\d{9}[A-Z]{2}$`)},
	{"jadlog", regexp.MustCompile(`^\d{14}$`)},
	{"total_express", regexp.MustCompile(`^TE\d{10}$`)},
	{"loggi", regexp.MustCompile(`^LG\d{8}$`)},
	{"mercado_envios", regexp.MustCompile(`^ME\d{12}$`)},
	{"ups", regexp.MustCompile(`^1Z[A-Z0-9]{16}$`)},
	{"fedex", regexp.MustCompile(`^\d{12,14}$`)},
	{"dhl", regexp.MustCompile(`^\d{10,11}$`)},
}

// IdentifyCarrier matches a tracking number against the known carrier
// formats. Unrecognized numbers return "unknown", never an error.
func IdentifyCarrier(trackingNumber string) string {
	for _, cp := range carrierPatterns {
		if cp.pattern.MatchString(trackingNumber) {
			return cp.name
		}
	}
	return "unknown"
}

// SubOrderTracking is the tracking view of one supplier sub-order.
type SubOrderTracking struct {
	SubOrderID        uuid.UUID                 `json:"subOrderId"`
	SupplierID        uuid.UUID                 `json:"supplierId"`
	SupplierName      string                    `json:"supplierName"`
	SupplierOrderID   string                    `json:"supplierOrderId,omitempty"`
	TrackingNumber    string                    `json:"trackingNumber,omitempty"`
	Carrier           string                    `json:"carrier,omitempty"`
	Status            models.OrderStatus        `json:"status"`
	Events            []connectors.TrackingEvent `json:"events"`
	EstimatedDelivery *time.Time                `json:"estimatedDelivery,omitempty"`
	LastUpdate        time.Time                 `json:"lastUpdate"`
}

// ConsolidatedTracking is the order-level tracking report.
type ConsolidatedTracking struct {
	OrderID            uuid.UUID                  `json:"orderId"`
	IsDropshipping     bool                       `json:"isDropshipping"`
	OverallStatus      models.OrderStatus         `json:"overallStatus"`
	TotalSuppliers     int                        `json:"totalSuppliers"`
	StatusSummary      map[models.OrderStatus]int `json:"statusSummary,omitempty"`
	EstimatedDelivery  *time.Time                 `json:"estimatedDelivery,omitempty"`
	TrackingDetails    []SubOrderTracking         `json:"trackingDetails,omitempty"`
	ConsolidatedEvents []connectors.TrackingEvent `json:"consolidatedEvents,omitempty"`
	Message            string                     `json:"message,omitempty"`
	LastUpdate         time.Time                  `json:"lastUpdate"`
}

// BulkTrackingResult reports a batch tracking run.
type BulkTrackingResult struct {
	TotalProcessed int                    `json:"totalProcessed"`
	Successful     int                    `json:"successful"`
	Failed         int                    `json:"failed"`
	Results        []*ConsolidatedTracking `json:"results"`
	Errors         []BulkTrackingError    `json:"errors,omitempty"`
	ProcessedAt    time.Time              `json:"processedAt"`
}

// BulkTrackingError is one failed order in a batch run.
type BulkTrackingError struct {
	OrderID uuid.UUID `json:"orderId"`
	Error   string    `json:"error"`
}

// TrackingUpdate is the result of attaching a tracking number.
type TrackingUpdate struct {
	SubOrderID     uuid.UUID          `json:"subOrderId"`
	TrackingNumber string             `json:"trackingNumber"`
	Carrier        string             `json:"carrier"`
	Status         models.OrderStatus `json:"status"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// Cap on the consolidated event list.
const maxConsolidatedEvents = 20

// TrackingService reconciles supplier-side shipment state into
// order-level tracking reports.
type TrackingService struct {
	orderRepo    repository.OrderRepository
	supplierRepo repository.SupplierRepository
	registry     *connectors.Registry
	logger       *logrus.Entry
}

// NewTrackingService creates a tracking service.
func NewTrackingService(
	orderRepo repository.OrderRepository,
	supplierRepo repository.SupplierRepository,
	registry *connectors.Registry,
	logger *logrus.Entry,
) *TrackingService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TrackingService{
		orderRepo:    orderRepo,
		supplierRepo: supplierRepo,
		registry:     registry,
		logger:       logger.WithField("service", "tracking"),
	}
}

// TrackOrder builds a consolidated tracking report across every
// sub-order and reconciles the parent order status with it.
func (s *TrackingService) TrackOrder(ctx context.Context, orderID uuid.UUID) (*ConsolidatedTracking, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s not found: %w", orderID, err)
	}

	subOrders, err := s.orderRepo.GetSubOrdersByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sub-orders: %w", err)
	}

	if len(subOrders) == 0 {
		return &ConsolidatedTracking{
			OrderID:        orderID,
			IsDropshipping: false,
			OverallStatus:  order.Status,
			Message:        "order is not dropshipping or has not been routed",
			LastUpdate:     time.Now().UTC(),
		}, nil
	}

	details := make([]SubOrderTracking, 0, len(subOrders))
	statuses := make([]models.OrderStatus, 0, len(subOrders))
	for i := range subOrders {
		detail := s.trackSubOrder(ctx, &subOrders[i])
		details = append(details, detail)
		statuses = append(statuses, detail.Status)
	}

	overall := models.ConsolidateStatuses(statuses)
	report := consolidate(orderID, details, overall)

	// Reconcile the parent order with what the suppliers report.
	if order.Status != overall {
		if err := s.orderRepo.UpdateStatus(ctx, orderID, overall); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to reconcile parent order status")
		}
	}

	return report, nil
}

// trackSubOrder resolves one sub-order's shipment state. The live
// connector is asked first; when it has nothing, the timeline is
// synthesized from the sub-order's own timestamps.
func (s *TrackingService) trackSubOrder(ctx context.Context, subOrder *models.SupplierSubOrder) SubOrderTracking {
	detail := SubOrderTracking{
		SubOrderID:      subOrder.ID,
		SupplierID:      subOrder.SupplierID,
		SupplierOrderID: subOrder.SupplierOrderID,
		TrackingNumber:  subOrder.TrackingNumber,
		Carrier:         subOrder.Carrier,
		Status:          subOrder.Status,
		LastUpdate:      subOrder.UpdatedAt,
	}
	if subOrder.Supplier != nil {
		detail.SupplierName = subOrder.Supplier.Name
	}

	if subOrder.TrackingNumber == "" {
		detail.Events = synthesizeTimeline(subOrder, "")
		return detail
	}

	if detail.Carrier == "" {
		detail.Carrier = IdentifyCarrier(subOrder.TrackingNumber)
	}

	if subOrder.Supplier != nil {
		if info := s.registry.TrackingFrom(ctx, subOrder.Supplier.Name, subOrder.TrackingNumber); info != nil {
			detail.Status = info.Status
			detail.Events = info.Events
			detail.EstimatedDelivery = info.EstimatedDelivery
			detail.LastUpdate = info.LastUpdated
			if info.Carrier != "" {
				detail.Carrier = info.Carrier
			}
			return detail
		}
	}

	detail.Events = synthesizeTimeline(subOrder, detail.Carrier)
	if subOrder.ShippedAt != nil && subOrder.DeliveredAt == nil && subOrder.Supplier != nil {
		eta := subOrder.ShippedAt.Add(time.Duration(subOrder.Supplier.ShippingTimeMaxDays) * 24 * time.Hour)
		detail.EstimatedDelivery = &eta
	}
	return detail
}

// synthesizeTimeline builds a monotonically increasing event list from
// the sub-order's stored milestone timestamps.
func synthesizeTimeline(subOrder *models.SupplierSubOrder, carrier string) []connectors.TrackingEvent {
	events := make([]connectors.TrackingEvent, 0, 4)

	if subOrder.SentAt != nil {
		events = append(events, connectors.TrackingEvent{
			Date:        *subOrder.SentAt,
			Status:      "order_sent",
			Location:    "system",
			Description: "Order sent to supplier",
		})
	}
	if subOrder.ConfirmedAt != nil {
		events = append(events, connectors.TrackingEvent{
			Date:        *subOrder.ConfirmedAt,
			Status:      "order_confirmed",
			Location:    "distribution center",
			Description: "Order confirmed and in preparation",
		})
	}
	if subOrder.ShippedAt != nil {
		description := "Package posted by carrier"
		if carrier != "" && carrier != "unknown" {
			description = fmt.Sprintf("Package posted by carrier %s", carrier)
		}
		events = append(events, connectors.TrackingEvent{
			Date:        *subOrder.ShippedAt,
			Status:      "shipped",
			Location:    "origin facility",
			Description: description,
		})
	}
	if subOrder.DeliveredAt != nil {
		events = append(events, connectors.TrackingEvent{
			Date:        *subOrder.DeliveredAt,
			Status:      "delivered",
			Location:    "destination address",
			Description: "Package delivered to recipient",
		})
	}
	return events
}

// consolidate merges per-supplier details into the order-level report.
// Events are newest-first, capped at maxConsolidatedEvents; the
// estimated delivery is the latest across suppliers.
func consolidate(orderID uuid.UUID, details []SubOrderTracking, overall models.OrderStatus) *ConsolidatedTracking {
	var all []connectors.TrackingEvent
	summary := make(map[models.OrderStatus]int)
	var latest *time.Time

	for i := range details {
		summary[details[i].Status]++
		for _, event := range details[i].Events {
			event.SupplierName = details[i].SupplierName
			all = append(all, event)
		}
		if eta := details[i].EstimatedDelivery; eta != nil {
			if latest == nil || eta.After(*latest) {
				latest = eta
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	if len(all) > maxConsolidatedEvents {
		all = all[:maxConsolidatedEvents]
	}

	return &ConsolidatedTracking{
		OrderID:            orderID,
		IsDropshipping:     true,
		OverallStatus:      overall,
		TotalSuppliers:     len(details),
		StatusSummary:      summary,
		EstimatedDelivery:  latest,
		TrackingDetails:    details,
		ConsolidatedEvents: all,
		LastUpdate:         time.Now().UTC(),
	}
}

// BulkTrack tracks a batch of orders, containing per-order failures.
func (s *TrackingService) BulkTrack(ctx context.Context, orderIDs []uuid.UUID) *BulkTrackingResult {
	result := &BulkTrackingResult{
		TotalProcessed: len(orderIDs),
		ProcessedAt:    time.Now().UTC(),
	}

	for _, orderID := range orderIDs {
		report, err := s.TrackOrder(ctx, orderID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkTrackingError{OrderID: orderID, Error: err.Error()})
			continue
		}
		result.Successful++
		result.Results = append(result.Results, report)
	}
	return result
}

// UpdateTrackingNumber attaches a tracking number to a sub-order,
// inferring the carrier when not provided. A pending or confirmed
// sub-order advances to shipped. The parent order inherits the first
// tracking number it sees.
func (s *TrackingService) UpdateTrackingNumber(ctx context.Context, subOrderID uuid.UUID, trackingNumber, carrier string) (*TrackingUpdate, error) {
	if trackingNumber == "" {
		return nil, fmt.Errorf("tracking number is required")
	}

	subOrder, err := s.orderRepo.GetSubOrderByID(ctx, subOrderID)
	if err != nil {
		return nil, fmt.Errorf("sub-order %s not found: %w", subOrderID, err)
	}

	if carrier != "" {
		if inferred := IdentifyCarrier(trackingNumber); inferred != "unknown" && inferred != carrier {
			s.logger.WithFields(logrus.Fields{
				"tracking_number": trackingNumber,
				"carrier":         carrier,
				"inferred":        inferred,
			}).Warn("tracking number does not match the declared carrier format")
		}
	} else {
		carrier = IdentifyCarrier(trackingNumber)
	}

	if err := s.orderRepo.SetSubOrderTracking(ctx, subOrderID, trackingNumber, carrier); err != nil {
		return nil, fmt.Errorf("failed to store tracking number: %w", err)
	}

	status := subOrder.Status
	if status == models.OrderStatusPending || status == models.OrderStatusConfirmed {
		status = models.OrderStatusShipped
		if err := s.orderRepo.UpdateSubOrderStatus(ctx, subOrderID, status); err != nil {
			return nil, fmt.Errorf("failed to advance sub-order status: %w", err)
		}
	}

	order, err := s.orderRepo.GetByID(ctx, subOrder.OrderID)
	if err == nil && order.TrackingNumber == "" {
		if err := s.orderRepo.SetTrackingNumber(ctx, order.ID, trackingNumber); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to set parent tracking number")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"sub_order_id":    subOrderID,
		"tracking_number": trackingNumber,
		"carrier":         carrier,
	}).Info("tracking number attached")

	return &TrackingUpdate{
		SubOrderID:     subOrderID,
		TrackingNumber: trackingNumber,
		Carrier:        carrier,
		Status:         status,
		UpdatedAt:      time.Now().UTC(),
	}, nil
}
