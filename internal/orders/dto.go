package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/internal/users"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// Actor identifies the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID uuid.UUID
	ShopID    uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// CreateOrderInput is the validated checkout payload.
type CreateOrderInput struct {
	Items         []ItemInput
	PaymentMode   string
	PaymentStatus string
	TotalAmount   decimal.Decimal
}

// UpdateStatusInput carries a requested status change.
type UpdateStatusInput struct {
	Status            string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
}

// OrderDTO is the fully populated order.
type OrderDTO struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"orderNumber"`
	CustomerID        uuid.UUID           `json:"customerId"`
	TotalAmount       decimal.Decimal     `json:"totalAmount"`
	PaymentMode       enums.PaymentMode   `json:"paymentMode"`
	PaymentStatus     enums.PaymentStatus `json:"paymentStatus"`
	Status            enums.OrderStatus   `json:"status"`
	TransactionID     *string             `json:"transactionId,omitempty"`
	GatewayOrderID    *string             `json:"gatewayOrderId,omitempty"`
	TrackingNumber    *string             `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time          `json:"estimatedDelivery,omitempty"`
	Items             []OrderItemDTO      `json:"items"`
	Tracking          *TrackingDTO        `json:"tracking,omitempty"`
	Customer          *users.Summary      `json:"customer,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// OrderItemDTO is a snapshot line of an order.
type OrderItemDTO struct {
	ID        uuid.UUID           `json:"id"`
	ProductID uuid.UUID           `json:"productId"`
	ShopID    uuid.UUID           `json:"shopId"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.Decimal     `json:"unitPrice"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Product   *catalog.ProductDTO `json:"product,omitempty"`
	Shop      *shops.Summary      `json:"shop,omitempty"`
}

type TrackingDTO struct {
	Status    enums.OrderStatus `json:"status"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ShopOrdersDTO is the storefront order list with its aggregates.
type ShopOrdersDTO struct {
	Orders            []OrderDTO       `json:"orders"`
	TotalOrders       int              `json:"totalOrders"`
	TotalRevenue      decimal.Decimal  `json:"totalRevenue"`
	PendingOrders     int              `json:"pendingOrders"`
	CompletedOrders   int              `json:"completedOrders"`
	ActiveProducts    *int64           `json:"activeProducts,omitempty"`
	AverageOrderValue *decimal.Decimal `json:"averageOrderValue,omitempty"`
}

// PurchasesDTO lists orders a user placed as a customer.
type PurchasesDTO struct {
	Orders      []OrderDTO      `json:"orders"`
	TotalOrders int             `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}

// StockShortage reports a line the inventory could not satisfy.
type StockShortage struct {
	ShopID    uuid.UUID `json:"shopId"`
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// FromModel maps an order with whatever associations were preloaded.
func FromModel(m *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                m.ID,
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		TotalAmount:       m.TotalAmount,
		PaymentMode:       m.PaymentMode,
		PaymentStatus:     m.PaymentStatus,
		Status:            m.Status,
		TransactionID:     m.TransactionID,
		GatewayOrderID:    m.GatewayOrderID,
		TrackingNumber:    m.TrackingNumber,
		EstimatedDelivery: m.EstimatedDelivery,
		Items:             make([]OrderItemDTO, 0, len(m.Items)),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for i := range m.Items {
		dto.Items = append(dto.Items, itemFromModel(&m.Items[i]))
	}
	if m.Tracking != nil {
		dto.Tracking = &TrackingDTO{Status: m.Tracking.Status, UpdatedAt: m.Tracking.UpdatedAt}
	}
	dto.Customer = users.SummaryFromModel(m.Customer)
	return dto
}

func itemFromModel(m *models.OrderItem) OrderItemDTO {
	item := OrderItemDTO{
		ID:        m.ID,
		ProductID: m.ProductID,
		ShopID:    m.ShopID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		Subtotal:  m.Subtotal,
		Shop:      shops.SummaryFromModel(m.Shop),
	}
	if m.Product != nil {
		item.Product = &catalog.ProductDTO{
			ID:          m.Product.ID,
			Name:        m.Product.Name,
			Unit:        m.Product.Unit,
			Category:    m.Product.Category,
			Description: m.Product.Description,
		}
	}
	return item
}
