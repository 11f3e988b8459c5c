package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
)

// ProductDTO is the global catalog entry.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	Category    *string   `json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// ListingDTO is one shop's offer of a product.
type ListingDTO struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"productId"`
	ShopID          uuid.UUID        `json:"shopId"`
	Price           decimal.Decimal  `json:"price"`
	WholesalerPrice *decimal.Decimal `json:"wholesalerPrice,omitempty"`
	Stock           int              `json:"stock"`
	Wholesale       bool             `json:"wholesale"`
	Product         *ProductDTO      `json:"product,omitempty"`
	Shop            *shops.Summary   `json:"shop,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ProductDetailDTO is a product with every in-stock listing and its rating.
type ProductDetailDTO struct {
	ProductDTO
	Listings      []ListingDTO `json:"listings"`
	AverageRating float64      `json:"averageRating"`
	TotalReviews  int64        `json:"totalReviews"`
}

// UpsertListingInput is the payload for adding or overwriting a listing.
// Price and Stock are required; WholesalerPrice is required for wholesale shops.
type UpsertListingInput struct {
	Name            string
	Price           *decimal.Decimal
	WholesalerPrice *decimal.Decimal
	Stock           *int
	Unit            string
	Category        *string
	Description     *string
}

// UpdateListingInput carries a partial listing update; nil fields are kept.
type UpdateListingInput struct {
	Price           *decimal.Decimal
	WholesalerPrice *decimal.Decimal
	Stock           *int
}

func productFromModel(m *models.Product) *ProductDTO {
	if m == nil {
		return nil
	}
	return &ProductDTO{
		ID:          m.ID,
		Name:        m.Name,
		Unit:        m.Unit,
		Category:    m.Category,
		Description: m.Description,
	}
}

// ListingFromModel maps an inventory row with its preloaded product and shop.
func ListingFromModel(m *models.ProductInventory) ListingDTO {
	dto := ListingDTO{
		ID:        m.ID,
		ProductID: m.ProductID,
		ShopID:    m.ShopID,
		Price:     m.Price,
		Stock:     m.Stock,
		Wholesale: m.Wholesale,
		Product:   productFromModel(m.Product),
		Shop:      shops.SummaryFromModel(m.Shop),
		UpdatedAt: m.UpdatedAt,
	}
	if m.WholesalerPrice.Valid {
		price := m.WholesalerPrice.Decimal
		dto.WholesalerPrice = &price
	}
	return dto
}

func listingsFromModels(rows []models.ProductInventory) []ListingDTO {
	out := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, ListingFromModel(&rows[i]))
	}
	return out
}
