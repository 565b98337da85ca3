package connectors_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropship-service/internal/connectors"
	"dropship-service/internal/connectors/demo"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestRegisterGatesOnAuthentication(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())

	ok, err := registry.Register(context.Background(), "good", demo.New("good"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = registry.Register(context.Background(), "bad", demo.New("bad", demo.WithAuthFailure()))
	require.NoError(t, err)
	assert.False(t, ok)

	_, found := registry.Get("good")
	assert.True(t, found)
	_, found = registry.Get("bad")
	assert.False(t, found)
	assert.Equal(t, []string{"good"}, registry.ActiveNames())
}

func TestUnregister(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())
	_, err := registry.Register(context.Background(), "demo", demo.New("demo"))
	require.NoError(t, err)

	assert.True(t, registry.Unregister("demo"))
	assert.False(t, registry.Unregister("demo"))
	assert.Empty(t, registry.ActiveNames())
}

func TestListKeepsRegistrationOrder(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		_, err := registry.Register(context.Background(), name, demo.New(name))
		require.NoError(t, err)
	}

	list := registry.List()
	require.Len(t, list, 3)
	assert.Equal(t, "charlie", list[0].Name)
	assert.Equal(t, "alpha", list[1].Name)
	assert.Equal(t, "bravo", list[2].Name)
}

func TestSearchAllFansOut(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())
	_, err := registry.Register(context.Background(), "one", demo.New("one"))
	require.NoError(t, err)
	_, err = registry.Register(context.Background(), "two", demo.New("two"))
	require.NoError(t, err)

	results := registry.SearchAll(context.Background(), "earbuds", nil)
	require.Len(t, results, 2)
	assert.NotEmpty(t, results["one"])
	assert.NotEmpty(t, results["two"])

	// a query nothing matches yields empty result sets, not an error
	results = registry.SearchAll(context.Background(), "zzz-no-such-product", nil)
	assert.Empty(t, results["one"])
	assert.Empty(t, results["two"])
}

func TestSyncInventoryAllContainsMissingConnectors(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())
	_, err := registry.Register(context.Background(), "demo", demo.New("demo"))
	require.NoError(t, err)

	results := registry.SyncInventoryAll(context.Background(), map[string][]string{
		"demo":  {"demo-001", "demo-999"},
		"ghost": {"x-1"},
	})

	require.Contains(t, results, "demo")
	assert.Equal(t, 250, results["demo"]["demo-001"])
	assert.Equal(t, 0, results["demo"]["demo-999"])
	assert.NotContains(t, results, "ghost")
}

func TestTrackingFrom(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())
	connector := demo.New("demo")
	_, err := registry.Register(context.Background(), "demo", connector)
	require.NoError(t, err)

	resp, err := connector.CreateOrder(context.Background(), &connectors.SupplierOrder{
		Items: []connectors.SupplierOrderItem{{SupplierProductID: "demo-001", Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	info := registry.TrackingFrom(context.Background(), "demo", resp.TrackingNumber)
	require.NotNil(t, info)
	assert.Equal(t, resp.TrackingNumber, info.TrackingNumber)
	assert.NotEmpty(t, info.Events)

	assert.Nil(t, registry.TrackingFrom(context.Background(), "demo", "no-such-number"))
	assert.Nil(t, registry.TrackingFrom(context.Background(), "ghost", resp.TrackingNumber))
}

func TestCreateOrderWithMissingConnector(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())

	resp := registry.CreateOrderWith(context.Background(), "ghost", &connectors.SupplierOrder{})
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "CONNECTOR_NOT_FOUND", resp.ErrorCode)
}

func TestFindBestSupplierByPrice(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())

	cheap := demo.New("cheap", demo.WithProducts([]connectors.SupplierProduct{
		{ID: "p1", Name: "Widget", PriceCents: 500, StockQuantity: 5},
	}))
	pricey := demo.New("pricey", demo.WithProducts([]connectors.SupplierProduct{
		{ID: "p2", Name: "Widget", PriceCents: 900, StockQuantity: 100},
	}))
	_, err := registry.Register(context.Background(), "pricey", pricey)
	require.NoError(t, err)
	_, err = registry.Register(context.Background(), "cheap", cheap)
	require.NoError(t, err)

	match := registry.FindBestSupplier(context.Background(), "widget", &connectors.BestSupplierCriteria{Priority: "price"})
	require.NotNil(t, match)
	assert.Equal(t, "cheap", match.Supplier)
	assert.Equal(t, "p1", match.Product.ID)
}

func TestFindBestSupplierByStock(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())

	shallow := demo.New("shallow", demo.WithProducts([]connectors.SupplierProduct{
		{ID: "p1", Name: "Widget", PriceCents: 500, StockQuantity: 5},
	}))
	deep := demo.New("deep", demo.WithProducts([]connectors.SupplierProduct{
		{ID: "p2", Name: "Widget", PriceCents: 900, StockQuantity: 100},
	}))
	_, err := registry.Register(context.Background(), "shallow", shallow)
	require.NoError(t, err)
	_, err = registry.Register(context.Background(), "deep", deep)
	require.NoError(t, err)

	match := registry.FindBestSupplier(context.Background(), "widget", &connectors.BestSupplierCriteria{Priority: "stock"})
	require.NotNil(t, match)
	assert.Equal(t, "deep", match.Supplier)
}

func TestFindBestSupplierNoResults(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())
	_, err := registry.Register(context.Background(), "demo", demo.New("demo"))
	require.NoError(t, err)

	match := registry.FindBestSupplier(context.Background(), "zzz-no-such-product", nil)
	assert.Nil(t, match)
}

func TestHealthCheck(t *testing.T) {
	registry := connectors.NewRegistry(quietLogger())
	_, err := registry.Register(context.Background(), "demo", demo.New("demo"))
	require.NoError(t, err)

	report := registry.HealthCheck(context.Background())
	require.NotNil(t, report)
	assert.Equal(t, 1, report.TotalConnectors)
	assert.Equal(t, 1, report.ActiveConnectors)
	assert.Equal(t, "healthy", report.Connectors["demo"].Status)
}
