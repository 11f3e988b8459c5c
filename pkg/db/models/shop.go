package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// Shop is a retail or wholesale storefront. An owner has at most one shop per type.
type Shop struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	OwnerID   uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:shops_owner_id_type_key,priority:1"`
	Type      enums.ShopType `gorm:"column:type;type:varchar(16);not null;uniqueIndex:shops_owner_id_type_key,priority:2"`
	Address   string         `gorm:"column:address;not null"`
	Lat       *float64       `gorm:"column:lat"`
	Lng       *float64       `gorm:"column:lng"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	Owner *User `gorm:"foreignKey:OwnerID"`
}

func (s *Shop) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
