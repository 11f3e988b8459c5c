package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductInventory is a shop's listing of a product: price, stock and the
// wholesale flag. One row per (shop, product).
type ProductInventory struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ShopID          uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:product_inventories_shop_id_product_id_key,priority:1"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null;uniqueIndex:product_inventories_shop_id_product_id_key,priority:2"`
	Price           decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	WholesalerPrice decimal.NullDecimal `gorm:"column:wholesaler_price;type:numeric(12,2)"`
	Stock           int                 `gorm:"column:stock;not null;default:0;check:product_inventories_stock_check,stock >= 0"`
	Wholesale       bool                `gorm:"column:wholesale;not null;default:false"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Product *Product `gorm:"foreignKey:ProductID"`
	Shop    *Shop    `gorm:"foreignKey:ShopID"`
}

func (ProductInventory) TableName() string {
	return "product_inventories"
}

func (p *ProductInventory) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
