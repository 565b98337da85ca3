package demo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship-service/internal/connectors"
	"dropship-service/internal/connectors/demo"
	"dropship-service/internal/models"
)

func TestAuthenticate(t *testing.T) {
	ok, err := demo.New("demo").Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = demo.New("demo", demo.WithAuthFailure()).Authenticate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchProductsFilters(t *testing.T) {
	c := demo.New("demo")

	all, err := c.SearchProducts(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	inStock, err := c.SearchProducts(context.Background(), "", &connectors.SearchFilters{InStockOnly: true})
	require.NoError(t, err)
	assert.Len(t, inStock, 4)

	limited, err := c.SearchProducts(context.Background(), "", &connectors.SearchFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestGetProductDetailsUnknownReturnsNil(t *testing.T) {
	c := demo.New("demo")

	p, err := c.GetProductDetails(context.Background(), "demo-404")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCreateOrderLifecycle(t *testing.T) {
	c := demo.New("demo")

	resp, err := c.CreateOrder(context.Background(), &connectors.SupplierOrder{
		Items: []connectors.SupplierOrderItem{{SupplierProductID: "demo-001", Quantity: 2}},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.NotEmpty(t, resp.SupplierOrderID)
	assert.NotEmpty(t, resp.TrackingNumber)
	require.NotNil(t, resp.EstimatedDelivery)

	// stock was decremented
	p, err := c.GetProductDetails(context.Background(), "demo-001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 248, p.StockQuantity)

	status, err := c.GetOrderStatus(context.Background(), resp.SupplierOrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, status)

	// tracking number follows the loggi format
	info, err := c.GetTrackingInfo(context.Background(), resp.TrackingNumber)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "loggi", info.Carrier)
	assert.NotEmpty(t, info.Events)
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	c := demo.New("demo")

	resp, err := c.CreateOrder(context.Background(), &connectors.SupplierOrder{
		Items: []connectors.SupplierOrderItem{{SupplierProductID: "demo-404", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "PRODUCT_NOT_FOUND", resp.ErrorCode)
}

func TestCreateOrderRejectsInsufficientStock(t *testing.T) {
	c := demo.New("demo")

	// the grooming brush ships with zero stock
	resp, err := c.CreateOrder(context.Background(), &connectors.SupplierOrder{
		Items: []connectors.SupplierOrderItem{
			{SupplierProductID: "demo-001", Quantity: 1},
			{SupplierProductID: "demo-005", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "OUT_OF_STOCK", resp.ErrorCode)

	// the valid line was not decremented either
	p, err := c.GetProductDetails(context.Background(), "demo-001")
	require.NoError(t, err)
	assert.Equal(t, 250, p.StockQuantity)
}

func TestAdvanceOrderEnforcesTransitions(t *testing.T) {
	c := demo.New("demo")

	resp, err := c.CreateOrder(context.Background(), &connectors.SupplierOrder{
		Items: []connectors.SupplierOrderItem{{SupplierProductID: "demo-002", Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	require.NoError(t, c.AdvanceOrder(resp.SupplierOrderID, models.OrderStatusShipped))
	require.NoError(t, c.AdvanceOrder(resp.SupplierOrderID, models.OrderStatusDelivered))

	// delivered is terminal
	assert.Error(t, c.AdvanceOrder(resp.SupplierOrderID, models.OrderStatusShipped))

	status, err := c.GetOrderStatus(context.Background(), resp.SupplierOrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, status)
}

func TestCalculateShipping(t *testing.T) {
	c := demo.New("demo")
	items := []connectors.SupplierOrderItem{{SupplierProductID: "demo-001", Quantity: 2}}

	domestic := c.CalculateShipping(context.Background(), items, models.Address{Country: "BR"})
	require.NotNil(t, domestic)
	assert.Empty(t, domestic.Error)
	assert.Equal(t, int64(799), domestic.CostCents)
	assert.Equal(t, 3, domestic.MinDays)
	assert.Equal(t, 7, domestic.MaxDays)

	international := c.CalculateShipping(context.Background(), items, models.Address{Country: "US"})
	require.NotNil(t, international)
	assert.Equal(t, int64(1598), international.CostCents)
	assert.Equal(t, 10, international.MinDays)
	assert.Equal(t, 21, international.MaxDays)
}

func TestSyncInventoryDegradesUnknownToZero(t *testing.T) {
	c := demo.New("demo")

	inventory, err := c.SyncInventory(context.Background(), []string{"demo-001", "demo-404"})
	require.NoError(t, err)
	assert.Equal(t, 250, inventory["demo-001"])
	assert.Equal(t, 0, inventory["demo-404"])
}

func TestSetStock(t *testing.T) {
	c := demo.New("demo")
	c.SetStock("demo-005", 10)

	p, err := c.GetProductDetails(context.Background(), "demo-005")
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity)
}
