package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the canonical catalog entry. Prices are stored in minor
// currency units (cents). Products linked to a supplier carry the
// supplier-native identifier used when routing sub-orders.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"type:varchar(500);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	PriceCents  int64     `gorm:"not null;default:0" json:"priceCents"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`

	// Supplier linkage; nil for products fulfilled from own stock
	SupplierID        *uuid.UUID `gorm:"type:uuid;index:idx_products_supplier" json:"supplierId,omitempty"`
	SupplierProductID string     `gorm:"type:varchar(255);index:idx_products_supplier_sku" json:"supplierProductId,omitempty"`

	// Pricing sync
	AutoSyncPrice      bool       `gorm:"default:false" json:"autoSyncPrice"`
	MarginPercentage   float64    `gorm:"default:30" json:"marginPercentage"`
	SupplierPriceCents int64      `gorm:"default:0" json:"supplierPriceCents"`
	LastSyncAt         *time.Time `json:"lastSyncAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Supplier *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// IsDropshipping reports whether routing should send this product to a supplier.
func (p *Product) IsDropshipping() bool {
	return p.SupplierID != nil && p.SupplierProductID != ""
}

// SupplierCatalogEntry mirrors one product of a supplier's catalog.
// At most one canonical product maps to a (supplier_id, supplier_sku) pair.
type SupplierCatalogEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SupplierID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_catalog_supplier_sku" json:"supplierId"`
	SupplierSKU string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_catalog_supplier_sku" json:"supplierSku"`

	Name          string `gorm:"type:varchar(500);not null" json:"name"`
	Description   string `gorm:"type:text" json:"description,omitempty"`
	PriceCents    int64  `gorm:"not null;default:0" json:"priceCents"`
	Currency      string `gorm:"type:varchar(10);default:'USD'" json:"currency"`
	StockQuantity int    `gorm:"not null;default:0" json:"stockQuantity"`
	Category      string `gorm:"type:varchar(255)" json:"category,omitempty"`
	ImageURLs     JSONB  `gorm:"type:jsonb;default:'{}'" json:"imageUrls,omitempty"`
	WeightGrams   int    `gorm:"default:0" json:"weightGrams,omitempty"`

	// Canonical mapping
	IsMapped          bool       `gorm:"default:false;index:idx_catalog_mapped" json:"isMapped"`
	MappedProductID   *uuid.UUID `gorm:"type:uuid" json:"mappedProductId,omitempty"`
	MappingConfidence float64    `gorm:"default:0" json:"mappingConfidence"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (SupplierCatalogEntry) TableName() string {
	return "supplier_catalog_entries"
}
