package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
)

// CartDTO is the cart as returned to the client.
type CartDTO struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Items       []ItemDTO       `json:"items"`
	ItemCount   int             `json:"itemCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// ItemDTO is one cart line with its price snapshot.
type ItemDTO struct {
	ID        uuid.UUID           `json:"id"`
	ProductID uuid.UUID           `json:"productId"`
	ShopID    uuid.UUID           `json:"shopId"`
	Quantity  int                 `json:"quantity"`
	Price     decimal.Decimal     `json:"price"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Product   *catalog.ProductDTO `json:"product,omitempty"`
	Shop      *shops.Summary      `json:"shop,omitempty"`
}

// AddItemInput is the payload for adding a listing to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	ShopID    uuid.UUID
	Quantity  int
}

func fromModel(m *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		Items:       make([]ItemDTO, 0, len(m.Items)),
		TotalAmount: decimal.Zero,
	}
	for i := range m.Items {
		item := m.Items[i]
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		line := ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  subtotal,
			Shop:      shops.SummaryFromModel(item.Shop),
		}
		if item.Product != nil {
			line.Product = &catalog.ProductDTO{
				ID:          item.Product.ID,
				Name:        item.Product.Name,
				Unit:        item.Product.Unit,
				Category:    item.Product.Category,
				Description: item.Product.Description,
			}
		}
		dto.Items = append(dto.Items, line)
		dto.ItemCount += item.Quantity
		dto.TotalAmount = dto.TotalAmount.Add(subtotal)
	}
	return dto
}
