package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SupplierSecret is the credential payload stored per supplier in GCP
// Secret Manager. Credentials never touch the database; suppliers carry
// only the secret reference.
type SupplierSecret struct {
	SupplierType     string                 `json:"supplier_type"`
	Credentials      map[string]interface{} `json:"credentials"`
	AdditionalConfig map[string]interface{} `json:"additional_config,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// AliExpressCredentials holds the open-platform app pair plus the
// per-account session token.
type AliExpressCredentials struct {
	AppKey      string `json:"app_key"`
	AppSecret   string `json:"app_secret"`
	AccessToken string `json:"access_token"`
}

// SpocketCredentials holds the single Bearer API key.
type SpocketCredentials struct {
	APIKey string `json:"api_key"`
}

// CJCredentials holds the account email and API key exchanged for
// short-lived access tokens.
type CJCredentials struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

// cacheEntry represents a cached secret with expiration
type cacheEntry struct {
	secret    *SupplierSecret
	expiresAt time.Time
}

// GCPSecretManager manages supplier credentials in Google Cloud Secret Manager
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// BuildSecretName constructs the secret name for a supplier.
// Format: projects/{project}/secrets/supplier-{name}-{type}
func (sm *GCPSecretManager) BuildSecretName(supplierName, supplierType string) string {
	secretID := fmt.Sprintf("supplier-%s-%s",
		sanitizeSecretID(strings.ToLower(supplierName)),
		sanitizeSecretID(strings.ToLower(supplierType)),
	)
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID)
}

// GetSecret retrieves a supplier secret from GCP Secret Manager
func (sm *GCPSecretManager) GetSecret(ctx context.Context, secretName string) (*SupplierSecret, error) {
	sm.cacheMu.RLock()
	if entry, ok := sm.cache[secretName]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.secret, nil
	}
	sm.cacheMu.RUnlock()

	accessRequest := &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	}

	result, err := sm.client.AccessSecretVersion(ctx, accessRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to access secret: %w", err)
	}

	var secret SupplierSecret
	if err := json.Unmarshal(result.Payload.Data, &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}

	sm.cacheMu.Lock()
	sm.cache[secretName] = &cacheEntry{
		secret:    &secret,
		expiresAt: time.Now().Add(sm.cacheTTL),
	}
	sm.cacheMu.Unlock()

	return &secret, nil
}

// CreateOrUpdateSecret creates or updates a supplier secret
func (sm *GCPSecretManager) CreateOrUpdateSecret(ctx context.Context, secretName string, secret *SupplierSecret) error {
	secret.UpdatedAt = time.Now()
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now()
	}

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	secretID := extractSecretID(secretName)

	// Try to create the secret first
	createRequest := &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", sm.projectID),
		SecretId: secretID,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	}

	_, err = sm.client.CreateSecret(ctx, createRequest)
	if err != nil && !isAlreadyExistsError(err) {
		return fmt.Errorf("failed to create secret: %w", err)
	}

	// Add a new version
	addVersionRequest := &secretmanagerpb.AddSecretVersionRequest{
		Parent: secretName,
		Payload: &secretmanagerpb.SecretPayload{
			Data: data,
		},
	}

	_, err = sm.client.AddSecretVersion(ctx, addVersionRequest)
	if err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}

	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()

	return nil
}

// DeleteSecret deletes a supplier secret
func (sm *GCPSecretManager) DeleteSecret(ctx context.Context, secretName string) error {
	deleteRequest := &secretmanagerpb.DeleteSecretRequest{
		Name: secretName,
	}

	if err := sm.client.DeleteSecret(ctx, deleteRequest); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()

	return nil
}

// InvalidateCache removes a secret from the cache
func (sm *GCPSecretManager) InvalidateCache(secretName string) {
	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()
}

// ClearCache removes all secrets from the cache
func (sm *GCPSecretManager) ClearCache() {
	sm.cacheMu.Lock()
	sm.cache = make(map[string]*cacheEntry)
	sm.cacheMu.Unlock()
}

// GetAliExpressCredentials parses AliExpress credentials from a SupplierSecret
func (sm *GCPSecretManager) GetAliExpressCredentials(secret *SupplierSecret) (*AliExpressCredentials, error) {
	if !strings.EqualFold(secret.SupplierType, "ALIEXPRESS") {
		return nil, fmt.Errorf("invalid supplier type: expected ALIEXPRESS, got %s", secret.SupplierType)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds AliExpressCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// GetSpocketCredentials parses Spocket credentials from a SupplierSecret
func (sm *GCPSecretManager) GetSpocketCredentials(secret *SupplierSecret) (*SpocketCredentials, error) {
	if !strings.EqualFold(secret.SupplierType, "SPOCKET") {
		return nil, fmt.Errorf("invalid supplier type: expected SPOCKET, got %s", secret.SupplierType)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds SpocketCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// GetCJCredentials parses CJ Dropshipping credentials from a SupplierSecret
func (sm *GCPSecretManager) GetCJCredentials(secret *SupplierSecret) (*CJCredentials, error) {
	if !strings.EqualFold(secret.SupplierType, "CJ_DROPSHIPPING") {
		return nil, fmt.Errorf("invalid supplier type: expected CJ_DROPSHIPPING, got %s", secret.SupplierType)
	}

	data, err := json.Marshal(secret.Credentials)
	if err != nil {
		return nil, err
	}

	var creds CJCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// sanitizeSecretID removes or replaces invalid characters for GCP secret IDs
// Secret IDs can only contain alphanumeric characters, hyphens, and underscores
func sanitizeSecretID(input string) string {
	var result strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return result.String()
}

// extractSecretID extracts the secret ID from the full secret name
func extractSecretID(secretName string) string {
	parts := strings.Split(secretName, "/")
	if len(parts) >= 4 {
		return parts[3]
	}
	return secretName
}

// isAlreadyExistsError checks if the error indicates the resource already exists
func isAlreadyExistsError(err error) bool {
	return strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already exists")
}
