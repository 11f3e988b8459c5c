package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

type VerifyGatewayInput struct {
	OrderID        uuid.UUID
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

type TrackUPIInput struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
	UPIApp  string
}

type VerifyUPIInput struct {
	OrderID       uuid.UUID
	TransactionID string
}

// GatewayOrderDTO is the mocked gateway order handed to the checkout widget.
type GatewayOrderDTO struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"keyId,omitempty"`
}

// PaymentStatusDTO is the payment view of an order.
type PaymentStatusDTO struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	PaymentMode   enums.PaymentMode   `json:"paymentMode"`
	TransactionID *string             `json:"transactionId,omitempty"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
}

func statusFromModel(m *models.Order) *PaymentStatusDTO {
	return &PaymentStatusDTO{
		OrderID:       m.ID,
		OrderNumber:   m.OrderNumber,
		Status:        m.Status,
		PaymentStatus: m.PaymentStatus,
		PaymentMode:   m.PaymentMode,
		TransactionID: m.TransactionID,
		TotalAmount:   m.TotalAmount,
	}
}
