package payloads

import "github.com/google/uuid"

// OrderPlacedEvent is emitted once an order and its stock decrements commit.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID   `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	CustomerID  uuid.UUID   `json:"customerId"`
	ShopIDs     []uuid.UUID `json:"shopIds"`
	TotalAmount string      `json:"totalAmount"`
	PaymentMode string      `json:"paymentMode"`
	ItemCount   int         `json:"itemCount"`
}

type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ChangedBy   uuid.UUID `json:"changedBy"`
}

type OrderPaymentUpdatedEvent struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	PaymentMode   string    `json:"paymentMode"`
	PaymentStatus string    `json:"paymentStatus"`
	Status        string    `json:"status"`
	TransactionID *string   `json:"transactionId,omitempty"`
}
