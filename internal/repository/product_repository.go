package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dropship-service/internal/models"
)

// ProductRepository defines data access for canonical products and the
// raw supplier catalog.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	GetBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error)
	GetAutoSyncBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	UpdatePrice(ctx context.Context, id uuid.UUID, priceCents, supplierPriceCents int64) error
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error

	UpsertCatalogEntry(ctx context.Context, entry *models.SupplierCatalogEntry) error
	GetCatalogEntry(ctx context.Context, supplierID uuid.UUID, supplierSKU string) (*models.SupplierCatalogEntry, error)
	ListCatalog(ctx context.Context, supplierID uuid.UUID, unmappedOnly bool) ([]models.SupplierCatalogEntry, error)
	MapCatalogEntry(ctx context.Context, entryID, productID uuid.UUID, confidence float64) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *productRepository) GetBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Find(&products).Error
	return products, err
}

func (r *productRepository) GetAutoSyncBySupplier(ctx context.Context, supplierID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND auto_sync_price = ?", supplierID, true).
		Find(&products).Error
	return products, err
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepository) UpdatePrice(ctx context.Context, id uuid.UUID, priceCents, supplierPriceCents int64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"price_cents":          priceCents,
			"supplier_price_cents": supplierPriceCents,
			"last_sync_at":         now,
			"updated_at":           now,
		}).Error
}

func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":        stock,
			"last_sync_at": now,
			"updated_at":   now,
		}).Error
}

// UpsertCatalogEntry inserts or refreshes one raw catalog row keyed by
// supplier and SKU. Mapping state is preserved on conflict.
func (r *productRepository) UpsertCatalogEntry(ctx context.Context, entry *models.SupplierCatalogEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "supplier_id"}, {Name: "supplier_sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "price_cents", "currency", "stock_quantity",
				"category", "image_urls", "weight_grams", "last_synced_at", "updated_at",
			}),
		}).
		Create(entry).Error
}

func (r *productRepository) GetCatalogEntry(ctx context.Context, supplierID uuid.UUID, supplierSKU string) (*models.SupplierCatalogEntry, error) {
	var entry models.SupplierCatalogEntry
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND supplier_sku = ?", supplierID, supplierSKU).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *productRepository) ListCatalog(ctx context.Context, supplierID uuid.UUID, unmappedOnly bool) ([]models.SupplierCatalogEntry, error) {
	var entries []models.SupplierCatalogEntry
	query := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID)
	if unmappedOnly {
		query = query.Where("is_mapped = ?", false)
	}
	err := query.Order("supplier_sku ASC").Find(&entries).Error
	return entries, err
}

func (r *productRepository) MapCatalogEntry(ctx context.Context, entryID, productID uuid.UUID, confidence float64) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplierCatalogEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"is_mapped":          true,
			"mapped_product_id":  productID,
			"mapping_confidence": confidence,
			"updated_at":         time.Now().UTC(),
		}).Error
}
