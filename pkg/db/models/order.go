package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// Order is a customer purchase that may span several shops.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	CustomerID        uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentMode       enums.PaymentMode   `gorm:"column:payment_mode;type:varchar(16);not null"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:varchar(16);not null;default:PAID"`
	Status            enums.OrderStatus   `gorm:"column:status;type:varchar(24);not null;default:PLACED"`
	TransactionID     *string             `gorm:"column:transaction_id"`
	GatewayOrderID    *string             `gorm:"column:gateway_order_id"`
	TrackingNumber    *string             `gorm:"column:tracking_number"`
	EstimatedDelivery *time.Time          `gorm:"column:estimated_delivery"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Customer *User       `gorm:"foreignKey:CustomerID"`
	Items    []OrderItem `gorm:"foreignKey:OrderID"`
	Tracking *Tracking   `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots what was bought from which shop at which price.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ShopID    uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
	Shop    *Shop    `gorm:"foreignKey:ShopID"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Tracking mirrors the order status for delivery tracking.
type Tracking struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:trackings_order_id_key"`
	Status    enums.OrderStatus `gorm:"column:status;type:varchar(24);not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Tracking) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
