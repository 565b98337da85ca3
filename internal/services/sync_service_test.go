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

func TestSyncSupplierCatalogImportsDemoCatalog(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	productRepo := new(MockProductRepository)

	supplier := activeSupplier("alpha", 500, 3, 5)

	supplierRepo.On("GetByID", mock.Anything, supplier.ID).Return(supplier, nil)
	supplierRepo.On("MarkSynced", mock.Anything, supplier.ID).Return(nil)
	// nothing mirrored yet, every product is new
	productRepo.On("GetCatalogEntry", mock.Anything, supplier.ID, mock.Anything).Return(nil, assert.AnError)
	productRepo.On("UpsertCatalogEntry", mock.Anything, mock.Anything).Return(nil)

	svc := NewSyncService(supplierRepo, productRepo, testRegistry(t, "alpha"), nil, testLogger())

	result, err := svc.SyncSupplierCatalog(context.Background(), supplier.ID)
	require.NoError(t, err)

	// the demo connector ships a five product catalog
	assert.Equal(t, 5, result.SyncedProducts)
	assert.Equal(t, 5, result.NewProducts)
	assert.Zero(t, result.UpdatedProducts)
	// no auto_import flag, nothing is promoted
	assert.Zero(t, result.AutoMapped)
	productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	supplierRepo.AssertCalled(t, "MarkSynced", mock.Anything, supplier.ID)
}

func TestSyncSupplierCatalogAutoImport(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	productRepo := new(MockProductRepository)

	supplier := activeSupplier("alpha", 500, 3, 5)
	supplier.Config = models.JSONB{"auto_import_products": true, "default_margin_percentage": 50.0}

	entryID := uuid.New()

	supplierRepo.On("GetByID", mock.Anything, supplier.ID).Return(supplier, nil)
	supplierRepo.On("MarkSynced", mock.Anything, supplier.ID).Return(nil)

	// first lookup per SKU misses (entry is new), the auto-map lookup
	// hits the freshly upserted row
	productRepo.On("GetCatalogEntry", mock.Anything, supplier.ID, "demo-001").Return(nil, assert.AnError).Once()
	productRepo.On("GetCatalogEntry", mock.Anything, supplier.ID, "demo-001").Return(&models.SupplierCatalogEntry{
		ID:            entryID,
		SupplierID:    supplier.ID,
		SupplierSKU:   "demo-001",
		Name:          "Wireless Earbuds",
		PriceCents:    1599,
		StockQuantity: 250,
	}, nil)
	// the rest of the canned catalog keeps missing, so their auto-map
	// attempts land in the error list
	productRepo.On("GetCatalogEntry", mock.Anything, supplier.ID, mock.Anything).Return(nil, assert.AnError)

	productRepo.On("UpsertCatalogEntry", mock.Anything, mock.Anything).Return(nil)
	productRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		// 1599 * 1.5 = 2398, rounded to 2399; stock 250 capped at 50
		return p.SupplierProductID == "demo-001" && p.PriceCents == 2399 && p.Stock == 50 && p.AutoSyncPrice
	})).Return(nil)
	productRepo.On("MapCatalogEntry", mock.Anything, entryID, mock.Anything, 0.8).Return(nil)

	svc := NewSyncService(supplierRepo, productRepo, testRegistry(t, "alpha"), nil, testLogger())

	result, err := svc.SyncSupplierCatalog(context.Background(), supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, result.NewProducts)
	assert.Equal(t, 1, result.AutoMapped)
	assert.Len(t, result.Errors, 4)
}

func TestSyncSupplierCatalogInactiveSupplier(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	supplier := activeSupplier("dormant", 500, 3, 5)
	supplier.IsActive = false
	supplierRepo.On("GetByID", mock.Anything, supplier.ID).Return(supplier, nil)

	svc := NewSyncService(supplierRepo, new(MockProductRepository), testRegistry(t), nil, testLogger())

	_, err := svc.SyncSupplierCatalog(context.Background(), supplier.ID)
	assert.Error(t, err)
}

func TestSyncSupplierCatalogMissingConnector(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	supplier := activeSupplier("unregistered", 500, 3, 5)
	supplierRepo.On("GetByID", mock.Anything, supplier.ID).Return(supplier, nil)

	svc := NewSyncService(supplierRepo, new(MockProductRepository), testRegistry(t), nil, testLogger())

	_, err := svc.SyncSupplierCatalog(context.Background(), supplier.ID)
	assert.Error(t, err)
}

func TestSyncSupplierInventoryAppliesStockRules(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	productRepo := new(MockProductRepository)

	supplier := activeSupplier("alpha", 500, 3, 5)

	// demo-001 reports 250 units, rules cap the display at 50;
	// demo-999 is unknown to the supplier and degrades to zero
	tracked := models.Product{ID: uuid.New(), Name: "Wireless Earbuds", Stock: 10, SupplierID: &supplier.ID, SupplierProductID: "demo-001"}
	vanished := models.Product{ID: uuid.New(), Name: "Retired Gadget", Stock: 7, SupplierID: &supplier.ID, SupplierProductID: "demo-999"}

	supplierRepo.On("GetByID", mock.Anything, supplier.ID).Return(supplier, nil)
	supplierRepo.On("MarkSynced", mock.Anything, supplier.ID).Return(nil)
	productRepo.On("GetBySupplier", mock.Anything, supplier.ID).Return([]models.Product{tracked, vanished}, nil)
	productRepo.On("UpdateStock", mock.Anything, tracked.ID, 50).Return(nil)
	productRepo.On("UpdateStock", mock.Anything, vanished.ID, 0).Return(nil)

	svc := NewSyncService(supplierRepo, productRepo, testRegistry(t, "alpha"), nil, testLogger())

	result, err := svc.SyncSupplierInventory(context.Background(), supplier.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalProducts)
	assert.Equal(t, 2, result.UpdatedProducts)
	require.Len(t, result.StockChanges, 2)

	byProduct := make(map[uuid.UUID]StockChange)
	for _, change := range result.StockChanges {
		byProduct[change.ProductID] = change
	}
	assert.Equal(t, 50, byProduct[tracked.ID].NewStock)
	assert.Equal(t, 250, byProduct[tracked.ID].SupplierStock)
	assert.Equal(t, 0, byProduct[vanished.ID].NewStock)
}

func TestRefreshInventoryAllFansOut(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	productRepo := new(MockProductRepository)

	healthy := activeSupplier("alpha", 500, 3, 5)
	broken := activeSupplier("unregistered", 1000, 5, 10)

	tracked := models.Product{ID: uuid.New(), Name: "Wireless Earbuds", Stock: 10, SupplierID: &healthy.ID, SupplierProductID: "demo-001"}
	orphan := models.Product{ID: uuid.New(), Name: "Retired Gadget", Stock: 7, SupplierID: &broken.ID, SupplierProductID: "x-1"}

	supplierRepo.On("GetActive", mock.Anything).Return([]models.Supplier{*healthy, *broken}, nil)
	supplierRepo.On("MarkSynced", mock.Anything, healthy.ID).Return(nil)
	productRepo.On("GetBySupplier", mock.Anything, healthy.ID).Return([]models.Product{tracked}, nil)
	productRepo.On("GetBySupplier", mock.Anything, broken.ID).Return([]models.Product{orphan}, nil)
	productRepo.On("UpdateStock", mock.Anything, tracked.ID, 50).Return(nil)

	svc := NewSyncService(supplierRepo, productRepo, testRegistry(t, "alpha"), nil, testLogger())

	results, err := svc.RefreshInventoryAll(context.Background())
	require.NoError(t, err)
	require.Contains(t, results, "alpha")
	require.Contains(t, results, "unregistered")

	assert.Equal(t, 1, results["alpha"].UpdatedProducts)
	require.Len(t, results["alpha"].StockChanges, 1)
	assert.Equal(t, 50, results["alpha"].StockChanges[0].NewStock)
	assert.Equal(t, 250, results["alpha"].StockChanges[0].SupplierStock)

	assert.Zero(t, results["unregistered"].UpdatedProducts)
	require.NotEmpty(t, results["unregistered"].Errors)
	assert.Contains(t, results["unregistered"].Errors[0], "no active connector")
	productRepo.AssertNotCalled(t, "UpdateStock", mock.Anything, orphan.ID, mock.Anything)
	supplierRepo.AssertNotCalled(t, "MarkSynced", mock.Anything, broken.ID)
}

func TestSyncAllSuppliersContainsFailures(t *testing.T) {
	supplierRepo := new(MockSupplierRepository)
	productRepo := new(MockProductRepository)

	healthy := activeSupplier("alpha", 500, 3, 5)
	broken := activeSupplier("unregistered", 1000, 5, 10)

	supplierRepo.On("GetActive", mock.Anything).Return([]models.Supplier{*healthy, *broken}, nil)
	supplierRepo.On("GetByID", mock.Anything, healthy.ID).Return(healthy, nil)
	supplierRepo.On("GetByID", mock.Anything, broken.ID).Return(broken, nil)
	supplierRepo.On("MarkSynced", mock.Anything, healthy.ID).Return(nil)
	productRepo.On("GetCatalogEntry", mock.Anything, healthy.ID, mock.Anything).Return(nil, assert.AnError)
	productRepo.On("UpsertCatalogEntry", mock.Anything, mock.Anything).Return(nil)
	productRepo.On("GetBySupplier", mock.Anything, healthy.ID).Return([]models.Product{}, nil)

	svc := NewSyncService(supplierRepo, productRepo, testRegistry(t, "alpha"), nil, testLogger())

	results, err := svc.SyncAllSuppliers(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Empty(t, results["alpha"].Errors)
	assert.Equal(t, 5, results["alpha"].SyncedProducts)
	assert.NotEmpty(t, results["unregistered"].Errors)
	assert.Zero(t, results["unregistered"].SyncedProducts)
}
