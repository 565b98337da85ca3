package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SupplierType represents the supported dropshipping supplier platforms
type SupplierType string

const (
	SupplierAliExpress SupplierType = "ALIEXPRESS"
	SupplierSpocket    SupplierType = "SPOCKET"
	SupplierCJ         SupplierType = "CJ_DROPSHIPPING"
	SupplierDemo       SupplierType = "DEMO"
)

// JSONB custom type for PostgreSQL JSONB
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(j))
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*j = JSONB(m)
	return nil
}

// Supplier represents a dropshipping supplier the platform can route orders to.
// Shipping cost is stored in minor currency units (cents).
type Supplier struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name         string       `gorm:"type:varchar(255);not null;uniqueIndex:idx_suppliers_name" json:"name"`
	SupplierType SupplierType `gorm:"type:varchar(50);not null;index:idx_suppliers_type" json:"supplierType"`
	IsActive     bool         `gorm:"default:true;index:idx_suppliers_active" json:"isActive"`

	// Shipping profile used by the routing engine
	ShippingCostCents    int64 `gorm:"not null;default:0" json:"shippingCostCents"`
	ShippingTimeMinDays  int   `gorm:"not null;default:3" json:"shippingTimeMinDays"`
	ShippingTimeMaxDays  int   `gorm:"not null;default:15" json:"shippingTimeMaxDays"`

	// API access (non-sensitive; secrets live in the credential store)
	APIBaseURL          string `gorm:"type:varchar(500)" json:"apiBaseUrl,omitempty"`
	TrackingAPIEndpoint string `gorm:"type:varchar(500)" json:"trackingApiEndpoint,omitempty"`
	SecretReference     string `gorm:"type:varchar(500)" json:"-"`

	Config JSONB `gorm:"type:jsonb;default:'{}'" json:"config,omitempty"`

	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	LastError  string     `gorm:"type:text" json:"lastError,omitempty"`
	ErrorCount int        `gorm:"default:0" json:"errorCount"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// AverageShippingDays is the estimate the routing engine scores with.
func (s *Supplier) AverageShippingDays() float64 {
	return float64(s.ShippingTimeMinDays+s.ShippingTimeMaxDays) / 2
}
