package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"dropship-service/internal/models"
	"dropship-service/internal/repository"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filters repository.OrderFilters) ([]models.Order, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrderRepository) SetRoutingStrategy(ctx context.Context, id uuid.UUID, strategy string) error {
	return m.Called(ctx, id, strategy).Error(0)
}

func (m *MockOrderRepository) SetTrackingNumber(ctx context.Context, id uuid.UUID, trackingNumber string) error {
	return m.Called(ctx, id, trackingNumber).Error(0)
}

func (m *MockOrderRepository) CreateSubOrder(ctx context.Context, subOrder *models.SupplierSubOrder) error {
	return m.Called(ctx, subOrder).Error(0)
}

func (m *MockOrderRepository) GetSubOrderByID(ctx context.Context, id uuid.UUID) (*models.SupplierSubOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierSubOrder), args.Error(1)
}

func (m *MockOrderRepository) GetSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SupplierSubOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupplierSubOrder), args.Error(1)
}

func (m *MockOrderRepository) UpdateSubOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrderRepository) SetSubOrderDispatchResult(ctx context.Context, id uuid.UUID, supplierOrderID, trackingNumber string, response datatypes.JSON) error {
	return m.Called(ctx, id, supplierOrderID, trackingNumber, response).Error(0)
}

func (m *MockOrderRepository) SetSubOrderTracking(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) error {
	return m.Called(ctx, id, trackingNumber, carrier).Error(0)
}

func (m *MockOrderRepository) SetSubOrderNotes(ctx context.Context, id uuid.UUID, notes string) error {
	return m.Called(ctx, id, notes).Error(0)
}

func (m *MockOrderRepository) RoutingStats(ctx context.Context, since time.Time) ([]repository.StrategyCount, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.StrategyCount), args.Error(1)
}

func (m *MockOrderRepository) SubOrderStatsBySupplier(ctx context.Context, since time.Time) ([]repository.SupplierOrderStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.SupplierOrderStats), args.Error(1)
}

type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) Create(ctx context.Context, supplier *models.Supplier) error {
	return m.Called(ctx, supplier).Error(0)
}

func (m *MockSupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) GetByName(ctx context.Context, name string) (*models.Supplier, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) GetActive(ctx context.Context) ([]models.Supplier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) GetByType(ctx context.Context, supplierType models.SupplierType) ([]models.Supplier, error) {
	args := m.Called(ctx, supplierType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Update(ctx context.Context, supplier *models.Supplier) error {
	return m.Called(ctx, supplier).Error(0)
}

func (m *MockSupplierRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *MockSupplierRepository) MarkSynced(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSupplierRepository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	return m.Called(ctx, id, message).Error(0)
}

func (m *MockSupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetAutoSyncBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) UpdatePrice(ctx context.Context, id uuid.UUID, priceCents, supplierPriceCents int64) error {
	return m.Called(ctx, id, priceCents, supplierPriceCents).Error(0)
}

func (m *MockProductRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return m.Called(ctx, id, stock).Error(0)
}

func (m *MockProductRepository) UpsertCatalogEntry(ctx context.Context, entry *models.SupplierCatalogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockProductRepository) GetCatalogEntry(ctx context.Context, supplierID uuid.UUID, supplierSKU string) (*models.SupplierCatalogEntry, error) {
	args := m.Called(ctx, supplierID, supplierSKU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplierCatalogEntry), args.Error(1)
}

func (m *MockProductRepository) ListCatalog(ctx context.Context, supplierID uuid.UUID, unmappedOnly bool) ([]models.SupplierCatalogEntry, error) {
	args := m.Called(ctx, supplierID, unmappedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupplierCatalogEntry), args.Error(1)
}

func (m *MockProductRepository) MapCatalogEntry(ctx context.Context, entryID, productID uuid.UUID, confidence float64) error {
	return m.Called(ctx, entryID, productID, confidence).Error(0)
}
