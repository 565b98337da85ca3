package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OrderStatus is the canonical status enum every supplier-native status
// vocabulary is mapped into.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusFailed     OrderStatus = "failed"
)

// Address is an immutable shipping snapshot attached to the order at
// creation time.
type Address struct {
	FullName     string `gorm:"type:varchar(255)" json:"fullName"`
	AddressLine1 string `gorm:"type:varchar(500)" json:"addressLine1"`
	AddressLine2 string `gorm:"type:varchar(500)" json:"addressLine2,omitempty"`
	City         string `gorm:"type:varchar(255)" json:"city"`
	State        string `gorm:"type:varchar(255)" json:"state"`
	PostalCode   string `gorm:"type:varchar(50)" json:"postalCode"`
	Country      string `gorm:"type:varchar(100)" json:"country"`
	Phone        string `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Email        string `gorm:"type:varchar(255)" json:"email,omitempty"`
}

// Order is the parent customer order. Totals are immutable once items
// are persisted; item prices are captured at order time and never
// re-read from the live catalog.
type Order struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CustomerName string      `gorm:"type:varchar(255)" json:"customerName,omitempty"`
	Status       OrderStatus `gorm:"type:varchar(50);not null;default:'pending';index:idx_orders_status" json:"status"`
	TotalCents   int64       `gorm:"not null;default:0" json:"totalCents"`
	Currency     string      `gorm:"type:varchar(10);default:'USD'" json:"currency"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:ship_" json:"shippingAddress"`

	PaymentReference string `gorm:"type:varchar(255)" json:"paymentReference,omitempty"`
	TrackingNumber   string `gorm:"type:varchar(100)" json:"trackingNumber,omitempty"`

	IsDropshipping  bool   `gorm:"default:false" json:"isDropshipping"`
	RoutingStrategy string `gorm:"type:varchar(50);index:idx_orders_strategy" json:"routingStrategy,omitempty"`

	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_orders_created" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`

	Items     []OrderItem        `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	SubOrders []SupplierSubOrder `gorm:"foreignKey:OrderID" json:"subOrders,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem references a canonical product with the quantity and unit
// price captured when the order was placed.
type OrderItem struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index:idx_order_items_order" json:"orderId"`

	ProductID         uuid.UUID `gorm:"type:uuid;not null" json:"productId"`
	SupplierProductID string    `gorm:"type:varchar(255)" json:"supplierProductId,omitempty"`
	Quantity          int       `gorm:"not null" json:"quantity"`
	UnitPriceCents    int64     `gorm:"not null" json:"unitPriceCents"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// TotalCents is the captured line total.
func (i *OrderItem) TotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// SupplierSubOrder is the per-supplier slice of a parent order,
// dispatched and tracked independently. Its status is independent from
// the parent and transitions monotonically.
type SupplierSubOrder struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index:idx_sub_orders_order" json:"orderId"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;index:idx_sub_orders_supplier" json:"supplierId"`

	SupplierOrderID string      `gorm:"type:varchar(255)" json:"supplierOrderId,omitempty"`
	Status          OrderStatus `gorm:"type:varchar(50);not null;default:'pending';index:idx_sub_orders_status" json:"status"`
	TrackingNumber  string      `gorm:"type:varchar(100)" json:"trackingNumber,omitempty"`
	Carrier         string      `gorm:"type:varchar(50)" json:"carrier,omitempty"`

	ItemCount     int   `gorm:"default:0" json:"itemCount"`
	SubtotalCents int64 `gorm:"default:0" json:"subtotalCents"`

	// Raw connector response retained for audit
	SupplierResponse datatypes.JSON `gorm:"type:jsonb" json:"supplierResponse,omitempty"`
	Notes            string         `gorm:"type:text" json:"notes,omitempty"`

	SentAt      *time.Time `json:"sentAt,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Supplier *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
}

func (SupplierSubOrder) TableName() string {
	return "supplier_sub_orders"
}
