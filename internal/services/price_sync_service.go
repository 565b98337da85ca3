package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dropship-service/internal/repository"
)

// Price rules in minor currency units.
const (
	minPriceCents = 1000
	// Psychological rounding switches from .99 to .90 at this price.
	roundingThresholdCents = 10000
)

// PriceChange records one product repricing.
type PriceChange struct {
	ProductID             uuid.UUID `json:"productId"`
	ProductName           string    `json:"productName"`
	OldPriceCents         int64     `json:"oldPriceCents"`
	NewPriceCents         int64     `json:"newPriceCents"`
	OldSupplierPriceCents int64     `json:"oldSupplierPriceCents"`
	NewSupplierPriceCents int64     `json:"newSupplierPriceCents"`
	MarginPercentage      float64   `json:"marginPercentage"`
}

// PriceSyncResult reports one repricing run.
type PriceSyncResult struct {
	SupplierID      uuid.UUID     `json:"supplierId"`
	TotalProducts   int           `json:"totalProducts"`
	UpdatedProducts int           `json:"updatedProducts"`
	PriceChanges    []PriceChange `json:"priceChanges,omitempty"`
	Errors          []string      `json:"errors,omitempty"`
	SyncedAt        time.Time     `json:"syncedAt"`
}

// PriceSyncService reprices auto-sync products from the latest
// supplier catalog prices, applying the configured margin and the
// floor/rounding rules.
type PriceSyncService struct {
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	logger       *logrus.Entry
}

// NewPriceSyncService creates a price sync service.
func NewPriceSyncService(
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	logger *logrus.Entry,
) *PriceSyncService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PriceSyncService{
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		logger:       logger.WithField("service", "price_sync"),
	}
}

// SyncSupplierPrices reprices every auto-sync product linked to the
// supplier from its latest synced catalog price. Products whose
// catalog entry is missing are skipped with an error entry.
func (s *PriceSyncService) SyncSupplierPrices(ctx context.Context, supplierID uuid.UUID) (*PriceSyncResult, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s not found: %w", supplierID, err)
	}
	if !supplier.IsActive {
		return nil, fmt.Errorf("supplier %s is inactive", supplier.Name)
	}

	products, err := s.productRepo.GetAutoSyncBySupplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load auto-sync products: %w", err)
	}

	result := &PriceSyncResult{
		SupplierID:    supplierID,
		TotalProducts: len(products),
		SyncedAt:      time.Now().UTC(),
	}

	for _, product := range products {
		if product.SupplierProductID == "" {
			continue
		}

		entry, err := s.productRepo.GetCatalogEntry(ctx, supplierID, product.SupplierProductID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("no catalog entry for product %s (sku %s)", product.ID, product.SupplierProductID))
			continue
		}
		if entry.PriceCents <= 0 {
			continue
		}

		newPrice := applyPriceRules(withMargin(entry.PriceCents, product.MarginPercentage))
		if err := s.productRepo.UpdatePrice(ctx, product.ID, newPrice, entry.PriceCents); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to reprice product %s: %v", product.ID, err))
			continue
		}
		result.UpdatedProducts++

		if newPrice != product.PriceCents || entry.PriceCents != product.SupplierPriceCents {
			result.PriceChanges = append(result.PriceChanges, PriceChange{
				ProductID:             product.ID,
				ProductName:           product.Name,
				OldPriceCents:         product.PriceCents,
				NewPriceCents:         newPrice,
				OldSupplierPriceCents: product.SupplierPriceCents,
				NewSupplierPriceCents: entry.PriceCents,
				MarginPercentage:      product.MarginPercentage,
			})
		}
	}

	s.logger.WithFields(logrus.Fields{
		"supplier": supplier.Name,
		"updated":  result.UpdatedProducts,
		"changes":  len(result.PriceChanges),
	}).Info("price sync complete")

	return result, nil
}

// SyncAllPrices reprices across every active supplier.
func (s *PriceSyncService) SyncAllPrices(ctx context.Context) (map[string]*PriceSyncResult, error) {
	suppliers, err := s.supplierRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active suppliers: %w", err)
	}

	results := make(map[string]*PriceSyncResult, len(suppliers))
	for i := range suppliers {
		result, err := s.SyncSupplierPrices(ctx, suppliers[i].ID)
		if err != nil {
			s.logger.WithError(err).WithField("supplier", suppliers[i].Name).Warn("price sync failed")
			continue
		}
		results[suppliers[i].Name] = result
	}
	return results, nil
}

// withMargin marks a supplier price up by the margin percentage.
func withMargin(supplierPriceCents int64, marginPercentage float64) int64 {
	return int64(float64(supplierPriceCents) * (1 + marginPercentage/100))
}

// applyPriceRules enforces the price floor and psychological rounding:
// whole units plus .90 above the threshold, .99 below it.
func applyPriceRules(priceCents int64) int64 {
	if priceCents < minPriceCents {
		priceCents = minPriceCents
	}
	whole := (priceCents / 100) * 100
	if priceCents >= roundingThresholdCents {
		return whole + 90
	}
	return whole + 99
}
