package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultProductUnit = "piece"

// Product is a global catalog entry shared by every shop that lists it.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	NameKey     string    `gorm:"column:name_key;not null;uniqueIndex:products_name_key_unit_key,priority:1"`
	Unit        string    `gorm:"column:unit;not null;default:piece;uniqueIndex:products_name_key_unit_key,priority:2"`
	Category    *string   `gorm:"column:category"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.NameKey == "" {
		p.NameKey = ProductNameKey(p.Name)
	}
	if p.Unit == "" {
		p.Unit = DefaultProductUnit
	}
	return nil
}

// ProductNameKey folds case and whitespace so "Basmati  Rice" and
// "basmati rice" resolve to the same catalog entry.
func ProductNameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
