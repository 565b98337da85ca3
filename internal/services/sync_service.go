package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dropship-service/internal/connectors"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
)

// Inventory cache keys live for a short window; suppliers are the
// source of truth.
const inventoryCacheTTL = 5 * time.Minute

// CatalogSyncResult reports one supplier catalog sync run.
type CatalogSyncResult struct {
	SupplierID      uuid.UUID `json:"supplierId"`
	SupplierName    string    `json:"supplierName"`
	SyncedProducts  int       `json:"syncedProducts"`
	NewProducts     int       `json:"newProducts"`
	UpdatedProducts int       `json:"updatedProducts"`
	AutoMapped      int       `json:"autoMapped"`
	Errors          []string  `json:"errors,omitempty"`
	SyncedAt        time.Time `json:"syncedAt"`
}

// InventorySyncResult reports one supplier inventory sync run.
type InventorySyncResult struct {
	SupplierID      uuid.UUID          `json:"supplierId"`
	SupplierName    string             `json:"supplierName"`
	TotalProducts   int                `json:"totalProducts"`
	UpdatedProducts int                `json:"updatedProducts"`
	StockChanges    []StockChange      `json:"stockChanges,omitempty"`
	Errors          []string           `json:"errors,omitempty"`
	SyncedAt        time.Time          `json:"syncedAt"`
}

// StockChange records one product stock adjustment.
type StockChange struct {
	ProductID     uuid.UUID `json:"productId"`
	ProductName   string    `json:"productName"`
	OldStock      int       `json:"oldStock"`
	NewStock      int       `json:"newStock"`
	SupplierStock int       `json:"supplierStock"`
}

// Stock display rules: keep a small safety reserve back and never
// advertise more than the display cap.
const (
	safetyStock     = 2
	maxDisplayStock = 50
)

// SyncService pulls supplier catalogs and inventory into the local
// store. Stock levels are cached in Redis for the storefront when a
// client is configured.
type SyncService struct {
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	registry     *connectors.Registry
	redis        *redis.Client
	logger       *logrus.Entry
}

// NewSyncService creates a sync service. redisClient may be nil.
func NewSyncService(
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	registry *connectors.Registry,
	redisClient *redis.Client,
	logger *logrus.Entry,
) *SyncService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SyncService{
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		registry:     registry,
		redis:        redisClient,
		logger:       logger.WithField("service", "sync"),
	}
}

// SyncSupplierCatalog pulls the supplier's catalog and upserts it into
// the raw catalog table. Per-product failures are collected, not
// propagated. Suppliers configured with auto_import get unmapped
// entries promoted into the canonical catalog.
func (s *SyncService) SyncSupplierCatalog(ctx context.Context, supplierID uuid.UUID) (*CatalogSyncResult, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s not found: %w", supplierID, err)
	}
	if !supplier.IsActive {
		return nil, fmt.Errorf("supplier %s is inactive", supplier.Name)
	}

	connector, ok := s.registry.Get(supplier.Name)
	if !ok {
		return nil, fmt.Errorf("no active connector for supplier %s", supplier.Name)
	}

	products, err := connector.SearchProducts(ctx, "", nil)
	if err != nil {
		if markErr := s.supplierRepo.MarkError(ctx, supplierID, err.Error()); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to record supplier error")
		}
		return nil, fmt.Errorf("catalog fetch failed for %s: %w", supplier.Name, err)
	}

	result := &CatalogSyncResult{
		SupplierID:   supplierID,
		SupplierName: supplier.Name,
		SyncedAt:     time.Now().UTC(),
	}

	autoImport := false
	if v, ok := supplier.Config["auto_import_products"].(bool); ok {
		autoImport = v
	}

	for _, p := range products {
		if p.ID == "" {
			result.Errors = append(result.Errors, "product without SKU skipped")
			continue
		}

		existing, _ := s.productRepo.GetCatalogEntry(ctx, supplierID, p.ID)

		now := time.Now().UTC()
		entry := &models.SupplierCatalogEntry{
			SupplierID:    supplierID,
			SupplierSKU:   p.ID,
			Name:          p.Name,
			Description:   p.Description,
			PriceCents:    p.PriceCents,
			Currency:      p.Currency,
			StockQuantity: p.StockQuantity,
			Category:      p.Category,
			LastSyncedAt:  &now,
		}
		if len(p.Images) > 0 {
			entry.ImageURLs = models.JSONB{"urls": p.Images}
		}
		if err := s.productRepo.UpsertCatalogEntry(ctx, entry); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to upsert %s: %v", p.ID, err))
			continue
		}
		result.SyncedProducts++
		if existing == nil {
			result.NewProducts++
			if autoImport {
				if err := s.autoMapProduct(ctx, supplier, p.ID); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("auto-map failed for %s: %v", p.ID, err))
				} else {
					result.AutoMapped++
				}
			}
		} else {
			result.UpdatedProducts++
			// Mapped entries push their fresh price/stock through to
			// the canonical product.
			if existing.IsMapped && existing.MappedProductID != nil {
				s.refreshMappedProduct(ctx, existing.MappedProductID, p)
			}
		}
	}

	if err := s.supplierRepo.MarkSynced(ctx, supplierID); err != nil {
		s.logger.WithError(err).Warn("failed to record supplier sync timestamp")
	}

	s.logger.WithFields(logrus.Fields{
		"supplier": supplier.Name,
		"synced":   result.SyncedProducts,
		"new":      result.NewProducts,
		"updated":  result.UpdatedProducts,
	}).Info("catalog sync complete")

	return result, nil
}

// autoMapProduct promotes a freshly synced catalog entry into the
// canonical catalog, priced with the supplier's default margin.
func (s *SyncService) autoMapProduct(ctx context.Context, supplier *models.Supplier, supplierSKU string) error {
	entry, err := s.productRepo.GetCatalogEntry(ctx, supplier.ID, supplierSKU)
	if err != nil {
		return err
	}

	marginPct := 30.0
	if v, ok := supplier.Config["default_margin_percentage"].(float64); ok && v > 0 {
		marginPct = v
	}

	product := &models.Product{
		ID:                 uuid.New(),
		Name:               entry.Name,
		Description:        entry.Description,
		PriceCents:         applyPriceRules(withMargin(entry.PriceCents, marginPct)),
		Stock:              applyStockRules(entry.StockQuantity),
		SupplierID:         &supplier.ID,
		SupplierProductID:  entry.SupplierSKU,
		AutoSyncPrice:      true,
		MarginPercentage:   marginPct,
		SupplierPriceCents: entry.PriceCents,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return err
	}

	// Auto-mapping carries lower confidence than a manual match.
	return s.productRepo.MapCatalogEntry(ctx, entry.ID, product.ID, 0.8)
}

func (s *SyncService) refreshMappedProduct(ctx context.Context, productID *uuid.UUID, supplierProduct connectors.SupplierProduct) {
	product, err := s.productRepo.GetByID(ctx, *productID)
	if err != nil {
		return
	}
	if product.AutoSyncPrice && supplierProduct.PriceCents > 0 {
		newPrice := applyPriceRules(withMargin(supplierProduct.PriceCents, product.MarginPercentage))
		if err := s.productRepo.UpdatePrice(ctx, product.ID, newPrice, supplierProduct.PriceCents); err != nil {
			s.logger.WithError(err).WithField("product_id", product.ID).Warn("failed to refresh mapped product price")
		}
	}
	if err := s.productRepo.UpdateStock(ctx, product.ID, applyStockRules(supplierProduct.StockQuantity)); err != nil {
		s.logger.WithError(err).WithField("product_id", product.ID).Warn("failed to refresh mapped product stock")
	}
}

// SyncSupplierInventory refreshes stock for every product linked to
// the supplier. A product the supplier no longer reports degrades to
// stock 0 rather than keeping a stale positive count.
func (s *SyncService) SyncSupplierInventory(ctx context.Context, supplierID uuid.UUID) (*InventorySyncResult, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s not found: %w", supplierID, err)
	}

	connector, ok := s.registry.Get(supplier.Name)
	if !ok {
		return nil, fmt.Errorf("no active connector for supplier %s", supplier.Name)
	}

	products, err := s.productRepo.GetBySupplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier products: %w", err)
	}

	result := &InventorySyncResult{
		SupplierID:    supplierID,
		SupplierName:  supplier.Name,
		TotalProducts: len(products),
		SyncedAt:      time.Now().UTC(),
	}
	if len(products) == 0 {
		return result, nil
	}

	skus := make([]string, 0, len(products))
	for _, p := range products {
		if p.SupplierProductID != "" {
			skus = append(skus, p.SupplierProductID)
		}
	}

	inventory, err := connector.SyncInventory(ctx, skus)
	if err != nil {
		if markErr := s.supplierRepo.MarkError(ctx, supplierID, err.Error()); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to record supplier error")
		}
		return nil, fmt.Errorf("inventory fetch failed for %s: %w", supplier.Name, err)
	}

	for _, p := range products {
		if p.SupplierProductID == "" {
			continue
		}
		supplierStock := inventory[p.SupplierProductID]
		newStock := applyStockRules(supplierStock)

		if err := s.productRepo.UpdateStock(ctx, p.ID, newStock); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to update stock for %s: %v", p.ID, err))
			continue
		}
		result.UpdatedProducts++
		if p.Stock != newStock {
			result.StockChanges = append(result.StockChanges, StockChange{
				ProductID:     p.ID,
				ProductName:   p.Name,
				OldStock:      p.Stock,
				NewStock:      newStock,
				SupplierStock: supplierStock,
			})
		}

		s.cacheStock(ctx, supplierID, p.SupplierProductID, newStock)
	}

	if err := s.supplierRepo.MarkSynced(ctx, supplierID); err != nil {
		s.logger.WithError(err).Warn("failed to record supplier sync timestamp")
	}

	s.logger.WithFields(logrus.Fields{
		"supplier": supplier.Name,
		"updated":  result.UpdatedProducts,
		"changes":  len(result.StockChanges),
	}).Info("inventory sync complete")

	return result, nil
}

// CachedStock reads a stock level from the Redis cache. Returns false
// when caching is disabled or the key is cold.
func (s *SyncService) CachedStock(ctx context.Context, supplierID uuid.UUID, supplierSKU string) (int, bool) {
	if s.redis == nil {
		return 0, false
	}
	val, err := s.redis.Get(ctx, stockCacheKey(supplierID, supplierSKU)).Int()
	if err != nil {
		return 0, false
	}
	return val, true
}

func (s *SyncService) cacheStock(ctx context.Context, supplierID uuid.UUID, supplierSKU string, stock int) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, stockCacheKey(supplierID, supplierSKU), stock, inventoryCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Debug("failed to cache stock level")
	}
}

func stockCacheKey(supplierID uuid.UUID, supplierSKU string) string {
	return fmt.Sprintf("inventory:%s:%s", supplierID, supplierSKU)
}

// SyncAllSuppliers runs catalog and inventory sync for every active
// supplier, containing per-supplier failures.
func (s *SyncService) SyncAllSuppliers(ctx context.Context) (map[string]*CatalogSyncResult, error) {
	suppliers, err := s.supplierRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active suppliers: %w", err)
	}

	results := make(map[string]*CatalogSyncResult, len(suppliers))
	for i := range suppliers {
		result, err := s.SyncSupplierCatalog(ctx, suppliers[i].ID)
		if err != nil {
			s.logger.WithError(err).WithField("supplier", suppliers[i].Name).Warn("catalog sync failed")
			results[suppliers[i].Name] = &CatalogSyncResult{
				SupplierID:   suppliers[i].ID,
				SupplierName: suppliers[i].Name,
				Errors:       []string{err.Error()},
				SyncedAt:     time.Now().UTC(),
			}
			continue
		}
		if _, err := s.SyncSupplierInventory(ctx, suppliers[i].ID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
		results[suppliers[i].Name] = result
	}
	return results, nil
}

// RefreshInventoryAll refreshes stock for every active supplier in one
// registry fan-out, without pulling catalogs. Suppliers whose connector
// is not registered contribute an error entry; a failed fetch degrades
// every reported stock to 0.
func (s *SyncService) RefreshInventoryAll(ctx context.Context) (map[string]*InventorySyncResult, error) {
	suppliers, err := s.supplierRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active suppliers: %w", err)
	}

	results := make(map[string]*InventorySyncResult, len(suppliers))
	mapping := make(map[string][]string)
	productsByName := make(map[string][]models.Product)

	for i := range suppliers {
		supplier := &suppliers[i]
		result := &InventorySyncResult{
			SupplierID:   supplier.ID,
			SupplierName: supplier.Name,
			SyncedAt:     time.Now().UTC(),
		}
		results[supplier.Name] = result

		products, err := s.productRepo.GetBySupplier(ctx, supplier.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to load supplier products: %v", err))
			continue
		}
		result.TotalProducts = len(products)

		skus := make([]string, 0, len(products))
		for _, p := range products {
			if p.SupplierProductID != "" {
				skus = append(skus, p.SupplierProductID)
			}
		}
		if len(skus) == 0 {
			continue
		}
		mapping[supplier.Name] = skus
		productsByName[supplier.Name] = products
	}

	inventories := s.registry.SyncInventoryAll(ctx, mapping)

	for name, products := range productsByName {
		result := results[name]
		inventory, ok := inventories[name]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("no active connector for supplier %s", name))
			continue
		}

		for _, p := range products {
			if p.SupplierProductID == "" {
				continue
			}
			supplierStock := inventory[p.SupplierProductID]
			newStock := applyStockRules(supplierStock)

			if err := s.productRepo.UpdateStock(ctx, p.ID, newStock); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to update stock for %s: %v", p.ID, err))
				continue
			}
			result.UpdatedProducts++
			if p.Stock != newStock {
				result.StockChanges = append(result.StockChanges, StockChange{
					ProductID:     p.ID,
					ProductName:   p.Name,
					OldStock:      p.Stock,
					NewStock:      newStock,
					SupplierStock: supplierStock,
				})
			}

			s.cacheStock(ctx, result.SupplierID, p.SupplierProductID, newStock)
		}

		if err := s.supplierRepo.MarkSynced(ctx, result.SupplierID); err != nil {
			s.logger.WithError(err).Warn("failed to record supplier sync timestamp")
		}
	}

	return results, nil
}

// applyStockRules holds back a safety reserve and caps the advertised
// stock.
func applyStockRules(stock int) int {
	if stock > safetyStock {
		stock -= safetyStock
	} else {
		stock = 0
	}
	if stock > maxDisplayStock {
		stock = maxDisplayStock
	}
	return stock
}
