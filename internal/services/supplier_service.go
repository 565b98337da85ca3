package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dropship-service/internal/connectors"
	"dropship-service/internal/connectors/aliexpress"
	"dropship-service/internal/connectors/cjdropshipping"
	"dropship-service/internal/connectors/demo"
	"dropship-service/internal/connectors/spocket"
	"dropship-service/internal/models"
	"dropship-service/internal/repository"
	"dropship-service/internal/secrets"
)

// SupplierService manages supplier records and their connector
// lifecycle: credentials go to the secret store, connectors are built
// per supplier type and registered once they authenticate.
type SupplierService struct {
	supplierRepo  repository.SupplierRepository
	registry      *connectors.Registry
	secretManager *secrets.GCPSecretManager
	logger        *logrus.Entry
}

// NewSupplierService creates a supplier service. secretManager may be
// nil; credentials then come from the supplier's non-sensitive config,
// which is only acceptable for demo connectors.
func NewSupplierService(
	supplierRepo repository.SupplierRepository,
	registry *connectors.Registry,
	secretManager *secrets.GCPSecretManager,
	logger *logrus.Entry,
) *SupplierService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SupplierService{
		supplierRepo:  supplierRepo,
		registry:      registry,
		secretManager: secretManager,
		logger:        logger.WithField("service", "supplier"),
	}
}

// CreateSupplierRequest contains the data for onboarding a supplier.
type CreateSupplierRequest struct {
	Name                string                 `json:"name" binding:"required"`
	SupplierType        models.SupplierType    `json:"supplierType" binding:"required"`
	ShippingCostCents   int64                  `json:"shippingCostCents"`
	ShippingTimeMinDays int                    `json:"shippingTimeMinDays"`
	ShippingTimeMaxDays int                    `json:"shippingTimeMaxDays"`
	APIBaseURL          string                 `json:"apiBaseUrl,omitempty"`
	TrackingAPIEndpoint string                 `json:"trackingApiEndpoint,omitempty"`
	Credentials         map[string]interface{} `json:"credentials,omitempty"`
	Config              map[string]interface{} `json:"config,omitempty"`
}

func isValidSupplierType(t models.SupplierType) bool {
	switch t {
	case models.SupplierAliExpress, models.SupplierSpocket, models.SupplierCJ, models.SupplierDemo:
		return true
	}
	return false
}

// Create onboards a supplier: credentials to the secret store, record
// to the database, connector built and registered.
func (s *SupplierService) Create(ctx context.Context, req *CreateSupplierRequest) (*models.Supplier, error) {
	if !isValidSupplierType(req.SupplierType) {
		return nil, fmt.Errorf("invalid supplier type: %s", req.SupplierType)
	}

	secretName := ""
	if s.secretManager != nil && len(req.Credentials) > 0 {
		secretName = s.secretManager.BuildSecretName(req.Name, string(req.SupplierType))
		secret := &secrets.SupplierSecret{
			SupplierType: string(req.SupplierType),
			Credentials:  req.Credentials,
		}
		if err := s.secretManager.CreateOrUpdateSecret(ctx, secretName, secret); err != nil {
			return nil, fmt.Errorf("failed to store credentials: %w", err)
		}
	}

	minDays := req.ShippingTimeMinDays
	if minDays <= 0 {
		minDays = 3
	}
	maxDays := req.ShippingTimeMaxDays
	if maxDays < minDays {
		maxDays = minDays + 12
	}

	supplier := &models.Supplier{
		ID:                  uuid.New(),
		Name:                req.Name,
		SupplierType:        req.SupplierType,
		IsActive:            true,
		ShippingCostCents:   req.ShippingCostCents,
		ShippingTimeMinDays: minDays,
		ShippingTimeMaxDays: maxDays,
		APIBaseURL:          req.APIBaseURL,
		TrackingAPIEndpoint: req.TrackingAPIEndpoint,
		SecretReference:     secretName,
	}
	if req.Config != nil {
		supplier.Config = models.JSONB(req.Config)
	}

	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		if s.secretManager != nil && secretName != "" {
			_ = s.secretManager.DeleteSecret(ctx, secretName)
		}
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	if _, err := s.Register(ctx, supplier.ID); err != nil {
		s.logger.WithError(err).WithField("supplier", supplier.Name).Warn("supplier created but connector registration failed")
	}

	return supplier, nil
}

// Register builds the supplier's connector and registers it. The
// registry gates on a successful authentication; a rejected credential
// returns false without error.
func (s *SupplierService) Register(ctx context.Context, supplierID uuid.UUID) (bool, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return false, fmt.Errorf("supplier %s not found: %w", supplierID, err)
	}

	connector, err := s.buildConnector(ctx, supplier)
	if err != nil {
		if markErr := s.supplierRepo.MarkError(ctx, supplierID, err.Error()); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to record supplier error")
		}
		return false, err
	}

	registered, err := s.registry.Register(ctx, supplier.Name, connector)
	if err != nil {
		if markErr := s.supplierRepo.MarkError(ctx, supplierID, err.Error()); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to record supplier error")
		}
		return false, err
	}
	if !registered {
		if markErr := s.supplierRepo.MarkError(ctx, supplierID, "authentication rejected"); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to record supplier error")
		}
		return false, nil
	}

	if err := s.supplierRepo.MarkSynced(ctx, supplierID); err != nil {
		s.logger.WithError(err).Warn("failed to clear supplier error state")
	}
	return true, nil
}

// Unregister removes the supplier's connector from the registry.
func (s *SupplierService) Unregister(ctx context.Context, supplierID uuid.UUID) error {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("supplier %s not found: %w", supplierID, err)
	}
	s.registry.Unregister(supplier.Name)
	return nil
}

// TestConnection re-authenticates the supplier's connector without
// touching the registry.
func (s *SupplierService) TestConnection(ctx context.Context, supplierID uuid.UUID) error {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("supplier %s not found: %w", supplierID, err)
	}

	connector, err := s.buildConnector(ctx, supplier)
	if err != nil {
		return err
	}

	ok, err := connector.Authenticate(ctx)
	if err != nil {
		if markErr := s.supplierRepo.MarkError(ctx, supplierID, err.Error()); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to record supplier error")
		}
		return fmt.Errorf("connection test failed: %w", err)
	}
	if !ok {
		if markErr := s.supplierRepo.MarkError(ctx, supplierID, "authentication rejected"); markErr != nil {
			s.logger.WithError(markErr).Warn("failed to record supplier error")
		}
		return fmt.Errorf("authentication rejected for supplier %s", supplier.Name)
	}

	return s.supplierRepo.MarkSynced(ctx, supplierID)
}

// UpdateCredentials replaces the stored credentials and re-registers
// the connector.
func (s *SupplierService) UpdateCredentials(ctx context.Context, supplierID uuid.UUID, credentials map[string]interface{}) error {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("supplier %s not found: %w", supplierID, err)
	}
	if s.secretManager == nil {
		return fmt.Errorf("secret manager not configured")
	}

	secretName := supplier.SecretReference
	if secretName == "" {
		secretName = s.secretManager.BuildSecretName(supplier.Name, string(supplier.SupplierType))
		supplier.SecretReference = secretName
		if err := s.supplierRepo.Update(ctx, supplier); err != nil {
			return fmt.Errorf("failed to store secret reference: %w", err)
		}
	}

	secret := &secrets.SupplierSecret{
		SupplierType: string(supplier.SupplierType),
		Credentials:  credentials,
	}
	if err := s.secretManager.CreateOrUpdateSecret(ctx, secretName, secret); err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	_, err = s.Register(ctx, supplierID)
	return err
}

// RegisterActiveSuppliers builds and registers connectors for every
// active supplier. Called at startup; per-supplier failures are
// contained.
func (s *SupplierService) RegisterActiveSuppliers(ctx context.Context) (int, error) {
	suppliers, err := s.supplierRepo.GetActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active suppliers: %w", err)
	}

	registered := 0
	for i := range suppliers {
		ok, err := s.Register(ctx, suppliers[i].ID)
		if err != nil {
			s.logger.WithError(err).WithField("supplier", suppliers[i].Name).Warn("connector registration failed")
			continue
		}
		if ok {
			registered++
		}
	}
	return registered, nil
}

// buildConnector constructs the connector for a supplier record,
// resolving credentials from the secret store when configured.
func (s *SupplierService) buildConnector(ctx context.Context, supplier *models.Supplier) (connectors.SupplierConnector, error) {
	if supplier.SupplierType == models.SupplierDemo {
		return demo.New(supplier.Name), nil
	}

	cfg := connectors.ConnectorConfig{
		Name:    supplier.Name,
		BaseURL: supplier.APIBaseURL,
		Timeout: 30 * time.Second,
		Extra:   map[string]string{},
	}

	if s.secretManager != nil && supplier.SecretReference != "" {
		secret, err := s.secretManager.GetSecret(ctx, supplier.SecretReference)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve credentials for %s: %w", supplier.Name, err)
		}
		switch supplier.SupplierType {
		case models.SupplierAliExpress:
			creds, err := s.secretManager.GetAliExpressCredentials(secret)
			if err != nil {
				return nil, err
			}
			cfg.APIKey = creds.AppKey
			cfg.APISecret = creds.AppSecret
			cfg.Extra["access_token"] = creds.AccessToken
		case models.SupplierSpocket:
			creds, err := s.secretManager.GetSpocketCredentials(secret)
			if err != nil {
				return nil, err
			}
			cfg.APIKey = creds.APIKey
		case models.SupplierCJ:
			creds, err := s.secretManager.GetCJCredentials(secret)
			if err != nil {
				return nil, err
			}
			cfg.APIKey = creds.APIKey
			cfg.Extra["email"] = creds.Email
		}
	}

	switch supplier.SupplierType {
	case models.SupplierAliExpress:
		return aliexpress.New(cfg), nil
	case models.SupplierSpocket:
		return spocket.New(cfg), nil
	case models.SupplierCJ:
		return cjdropshipping.New(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported supplier type: %s", supplier.SupplierType)
	}
}
