package shops

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

const PlaceholderAddress = "Address not set"

// ShopDTO exposes shop data in API responses.
type ShopDTO struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	OwnerID   uuid.UUID      `json:"ownerId"`
	Type      enums.ShopType `json:"type"`
	Address   string         `json:"address"`
	Lat       *float64       `json:"lat,omitempty"`
	Lng       *float64       `json:"lng,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Summary is the compact shop shape embedded in listings and orders.
type Summary struct {
	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"name"`
	Type    enums.ShopType `json:"type"`
	Address string         `json:"address"`
	Lat     *float64       `json:"lat,omitempty"`
	Lng     *float64       `json:"lng,omitempty"`
}

func FromModel(m *models.Shop) ShopDTO {
	return ShopDTO{
		ID:        m.ID,
		Name:      m.Name,
		OwnerID:   m.OwnerID,
		Type:      m.Type,
		Address:   m.Address,
		Lat:       m.Lat,
		Lng:       m.Lng,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// SummaryFromModel returns nil for a nil shop so callers can embed it directly.
func SummaryFromModel(m *models.Shop) *Summary {
	if m == nil {
		return nil
	}
	return &Summary{
		ID:      m.ID,
		Name:    m.Name,
		Type:    m.Type,
		Address: m.Address,
		Lat:     m.Lat,
		Lng:     m.Lng,
	}
}

// DefaultName builds the placeholder name given to lazily created shops.
func DefaultName(ownerName string, shopType enums.ShopType) string {
	if shopType == enums.ShopTypeWholesale {
		return fmt.Sprintf("%s's Wholesale", ownerName)
	}
	return fmt.Sprintf("%s's Shop", ownerName)
}
