package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dropship-service/internal/models"
)

func TestApplyPriceRules(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  int64
	}{
		{"below floor snaps to floor then rounds", 500, 1099},
		{"floor exactly", 1000, 1099},
		{"below rounding threshold gets .99", 5230, 5299},
		{"at threshold gets .90", 10000, 10090},
		{"above threshold gets .90", 25412, 25490},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyPriceRules(tt.cents))
		})
	}
}

func TestWithMargin(t *testing.T) {
	assert.Equal(t, int64(1300), withMargin(1000, 30))
	assert.Equal(t, int64(1000), withMargin(1000, 0))
	assert.Equal(t, int64(2000), withMargin(1000, 100))
}

func TestApplyStockRules(t *testing.T) {
	tests := []struct {
		name  string
		stock int
		want  int
	}{
		{"zero stays zero", 0, 0},
		{"at safety stock drops to zero", 2, 0},
		{"safety stock subtracted", 10, 8},
		{"capped at display maximum", 500, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyStockRules(tt.stock))
		})
	}
}

func TestSyncSupplierPrices(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	productRepo := new(MockProductRepository)

	supplier := activeSupplier("alpha", 500, 3, 5)

	repriced := models.Product{
		ID:                 uuid.New(),
		Name:               "Wireless Earbuds",
		PriceCents:         1999,
		SupplierID:         &supplier.ID,
		SupplierProductID:  "demo-001",
		AutoSyncPrice:      true,
		MarginPercentage:   30,
		SupplierPriceCents: 1500,
	}
	orphan := models.Product{
		ID:                uuid.New(),
		Name:              "Phone Stand",
		SupplierID:        &supplier.ID,
		SupplierProductID: "demo-999",
		AutoSyncPrice:     true,
		MarginPercentage:  30,
	}

	supplierRepo.On("GetByID", mock.Anything, supplier.ID).Return(supplier, nil)
	productRepo.On("GetAutoSyncBySupplier", mock.Anything, supplier.ID).Return([]models.Product{repriced, orphan}, nil)
	productRepo.On("GetCatalogEntry", mock.Anything, supplier.ID, "demo-001").Return(&models.SupplierCatalogEntry{
		SupplierID:  supplier.ID,
		SupplierSKU: "demo-001",
		PriceCents:  1800,
	}, nil)
	productRepo.On("GetCatalogEntry", mock.Anything, supplier.ID, "demo-999").Return(nil, assert.AnError)
	// 1800 * 1.3 = 2340, rounded to 2399
	productRepo.On("UpdatePrice", mock.Anything, repriced.ID, int64(2399), int64(1800)).Return(nil)

	svc := NewPriceSyncService(supplierRepo, productRepo, testLogger())

	result, err := svc.SyncSupplierPrices(context.Background(), supplier.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalProducts)
	assert.Equal(t, 1, result.UpdatedProducts)
	require.Len(t, result.PriceChanges, 1)
	assert.Equal(t, int64(1999), result.PriceChanges[0].OldPriceCents)
	assert.Equal(t, int64(2399), result.PriceChanges[0].NewPriceCents)
	assert.Equal(t, int64(1800), result.PriceChanges[0].NewSupplierPriceCents)
	require.Len(t, result.Errors, 1)
}

func TestSyncSupplierPricesInactiveSupplier(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	supplier := activeSupplier("dormant", 500, 3, 5)
	supplier.IsActive = false
	supplierRepo.On("GetByID", mock.Anything, supplier.ID).Return(supplier, nil)

	svc := NewPriceSyncService(supplierRepo, new(MockProductRepository), testLogger())

	_, err := svc.SyncSupplierPrices(context.Background(), supplier.ID)
	assert.Error(t, err)
}
