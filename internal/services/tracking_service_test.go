package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
)

func TestIdentifyCarrier(t *testing.T) {
	tests := []struct {
		trackingNumber string
		want           string
	}{
		{"AB123456789CD", "correios"},
		{"12345678901234", "jadlog"}, // 14 digits matches jadlog before fedex
		{"123456789012", "fedex"},    // 12 digits
		{"1234567890", "dhl"},        // 10 digits
		{"TE1234567890", "total_express"},
		{"LG12345678", "loggi"},
		{"ME123456789012", "mercado_envios"},
		{"1ZABC1234567890123", "ups"},
		{"XYZ", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.trackingNumber, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentifyCarrier(tt.trackingNumber))
		})
	}
}

func TestConsolidateStatuses(t *testing.T) {
	tests := []struct {
		name     string
		statuses []models.OrderStatus
		want     models.OrderStatus
	}{
		{"empty", nil, models.OrderStatusPending},
		{"all delivered", []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusDelivered}, models.OrderStatusDelivered},
		{"partial delivery reports shipped", []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusConfirmed}, models.OrderStatusShipped},
		{"most advanced wins", []models.OrderStatus{models.OrderStatusPending, models.OrderStatusShipped}, models.OrderStatusShipped},
		{"failed alone stays pending rank", []models.OrderStatus{models.OrderStatusFailed, models.OrderStatusConfirmed}, models.OrderStatusConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, models.ConsolidateStatuses(tt.statuses))
		})
	}
}

func TestTrackOrderWithoutSubOrders(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	orderID := uuid.New()
	orderRepo.On("GetByID", mock.Anything, orderID).Return(&models.Order{ID: orderID, Status: models.OrderStatusPending}, nil)
	orderRepo.On("GetSubOrdersByOrder", mock.Anything, orderID).Return([]models.SupplierSubOrder{}, nil)

	svc := NewTrackingService(orderRepo, new(MockSupplierRepository), testRegistry(t), testLogger())

	report, err := svc.TrackOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.False(t, report.IsDropshipping)
	assert.Equal(t, models.OrderStatusPending, report.OverallStatus)
	assert.NotEmpty(t, report.Message)
}

func TestTrackOrderConsolidatesAndReconcilesParent(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	orderID := uuid.New()

	now := time.Now().UTC()
	shippedAt := now.Add(-48 * time.Hour)
	deliveredAt := now.Add(-2 * time.Hour)
	confirmedAt := now.Add(-72 * time.Hour)

	supplierA := activeSupplier("alpha", 500, 3, 5)
	supplierB := activeSupplier("beta", 1000, 5, 10)

	subOrders := []models.SupplierSubOrder{
		{
			ID:             uuid.New(),
			OrderID:        orderID,
			SupplierID:     supplierA.ID,
			Supplier:       supplierA,
			Status:         models.OrderStatusDelivered,
			TrackingNumber: "AB123456789CD",
			ConfirmedAt:    &confirmedAt,
			ShippedAt:      &shippedAt,
			DeliveredAt:    &deliveredAt,
			UpdatedAt:      now,
		},
		{
			ID:             uuid.New(),
			OrderID:        orderID,
			SupplierID:     supplierB.ID,
			Supplier:       supplierB,
			Status:         models.OrderStatusShipped,
			TrackingNumber: "TE1234567890",
			ConfirmedAt:    &confirmedAt,
			ShippedAt:      &shippedAt,
			UpdatedAt:      now,
		},
	}

	orderRepo.On("GetByID", mock.Anything, orderID).Return(&models.Order{ID: orderID, Status: models.OrderStatusProcessing}, nil)
	orderRepo.On("GetSubOrdersByOrder", mock.Anything, orderID).Return(subOrders, nil)
	orderRepo.On("UpdateStatus", mock.Anything, orderID, models.OrderStatusShipped).Return(nil)

	// no connectors registered, timelines are synthesized
	svc := NewTrackingService(orderRepo, new(MockSupplierRepository), testRegistry(t), testLogger())

	report, err := svc.TrackOrder(context.Background(), orderID)
	require.NoError(t, err)

	assert.True(t, report.IsDropshipping)
	// one sub-order delivered, one shipped: overall is shipped
	assert.Equal(t, models.OrderStatusShipped, report.OverallStatus)
	assert.Equal(t, 2, report.TotalSuppliers)
	assert.Equal(t, 1, report.StatusSummary[models.OrderStatusDelivered])
	assert.Equal(t, 1, report.StatusSummary[models.OrderStatusShipped])

	// events are ordered newest first and tagged with the supplier
	require.NotEmpty(t, report.ConsolidatedEvents)
	for i := 1; i < len(report.ConsolidatedEvents); i++ {
		assert.False(t, report.ConsolidatedEvents[i-1].Date.Before(report.ConsolidatedEvents[i].Date))
	}
	assert.Equal(t, "delivered", report.ConsolidatedEvents[0].Status)
	assert.Equal(t, "alpha", report.ConsolidatedEvents[0].SupplierName)

	// undelivered sub-order contributes the ETA from its shipped date
	require.NotNil(t, report.EstimatedDelivery)
	assert.Equal(t, shippedAt.Add(10*24*time.Hour), *report.EstimatedDelivery)

	orderRepo.AssertCalled(t, "UpdateStatus", mock.Anything, orderID, models.OrderStatusShipped)
}

func TestTrackOrderCapsConsolidatedEvents(t *testing.T) {
	details := make([]SubOrderTracking, 0, 5)
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		detail := SubOrderTracking{SupplierName: "supplier", Status: models.OrderStatusShipped}
		for j := 0; j < 6; j++ {
			detail.Events = append(detail.Events, trackingEventAt(base.Add(time.Duration(i*6+j)*time.Minute)))
		}
		details = append(details, detail)
	}

	report := consolidate(uuid.New(), details, models.OrderStatusShipped)
	assert.Len(t, report.ConsolidatedEvents, maxConsolidatedEvents)
}

func TestBulkTrackContainsFailures(t *testing.T) {
	orderRepo := new(MockOrderRepository)

	goodID := uuid.New()
	badID := uuid.New()

	orderRepo.On("GetByID", mock.Anything, goodID).Return(&models.Order{ID: goodID, Status: models.OrderStatusPending}, nil)
	orderRepo.On("GetSubOrdersByOrder", mock.Anything, goodID).Return([]models.SupplierSubOrder{}, nil)
	orderRepo.On("GetByID", mock.Anything, badID).Return(nil, assert.AnError)

	svc := NewTrackingService(orderRepo, new(MockSupplierRepository), testRegistry(t), testLogger())

	result := svc.BulkTrack(context.Background(), []uuid.UUID{goodID, badID})
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, badID, result.Errors[0].OrderID)
}

func TestUpdateTrackingNumberInfersCarrierAndShips(t *testing.T) {
	orderRepo := new(MockOrderRepository)

	orderID := uuid.New()
	subOrderID := uuid.New()
	subOrder := &models.SupplierSubOrder{
		ID:      subOrderID,
		OrderID: orderID,
		Status:  models.OrderStatusConfirmed,
	}

	orderRepo.On("GetSubOrderByID", mock.Anything, subOrderID).Return(subOrder, nil)
	orderRepo.On("SetSubOrderTracking", mock.Anything, subOrderID, "AB123456789CD", "correios").Return(nil)
	orderRepo.On("UpdateSubOrderStatus", mock.Anything, subOrderID, models.OrderStatusShipped).Return(nil)
	orderRepo.On("GetByID", mock.Anything, orderID).Return(&models.Order{ID: orderID}, nil)
	orderRepo.On("SetTrackingNumber", mock.Anything, orderID, "AB123456789CD").Return(nil)

	svc := NewTrackingService(orderRepo, new(MockSupplierRepository), testRegistry(t), testLogger())

	update, err := svc.UpdateTrackingNumber(context.Background(), subOrderID, "AB123456789CD", "")
	require.NoError(t, err)
	assert.Equal(t, "correios", update.Carrier)
	assert.Equal(t, models.OrderStatusShipped, update.Status)

	orderRepo.AssertCalled(t, "SetTrackingNumber", mock.Anything, orderID, "AB123456789CD")
}

func TestUpdateTrackingNumberLeavesShippedStatusAlone(t *testing.T) {
	orderRepo := new(MockOrderRepository)

	orderID := uuid.New()
	subOrderID := uuid.New()
	subOrder := &models.SupplierSubOrder{
		ID:      subOrderID,
		OrderID: orderID,
		Status:  models.OrderStatusShipped,
	}

	orderRepo.On("GetSubOrderByID", mock.Anything, subOrderID).Return(subOrder, nil)
	orderRepo.On("SetSubOrderTracking", mock.Anything, subOrderID, "LG12345678", "loggi").Return(nil)
	orderRepo.On("GetByID", mock.Anything, orderID).Return(&models.Order{ID: orderID, TrackingNumber: "LG00000001"}, nil)

	svc := NewTrackingService(orderRepo, new(MockSupplierRepository), testRegistry(t), testLogger())

	update, err := svc.UpdateTrackingNumber(context.Background(), subOrderID, "LG12345678", "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, update.Status)

	orderRepo.AssertNotCalled(t, "UpdateSubOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "SetTrackingNumber", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateTrackingNumberRequiresNumber(t *testing.T) {
	svc := NewTrackingService(new(MockOrderRepository), new(MockSupplierRepository), testRegistry(t), testLogger())
	_, err := svc.UpdateTrackingNumber(context.Background(), uuid.New(), "", "")
	assert.Error(t, err)
}

func trackingEventAt(date time.Time) connectors.TrackingEvent {
	return connectors.TrackingEvent{Date: date, Status: "in_transit"}
}
