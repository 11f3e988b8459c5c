package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
)

var inr = accounting.Accounting{Symbol: "₹", Precision: 2}

// InvoiceDTO is the printable shape of an order, or of one shop's share of it.
type InvoiceDTO struct {
	InvoiceNumber string         `json:"invoiceNumber"`
	OrderNumber   string         `json:"orderNumber"`
	IssuedAt      time.Time      `json:"issuedAt"`
	Status        string         `json:"status"`
	PaymentMode   string         `json:"paymentMode"`
	PaymentStatus string         `json:"paymentStatus"`
	Sellers       []InvoiceParty `json:"sellers"`
	Buyer         InvoiceParty   `json:"buyer"`
	Lines         []InvoiceLine  `json:"lines"`
	Subtotal      InvoiceAmount  `json:"subtotal"`
	Tax           InvoiceAmount  `json:"tax"`
	Total         InvoiceAmount  `json:"total"`
}

type InvoiceParty struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address,omitempty"`
	Phone   string    `json:"phone,omitempty"`
}

type InvoiceLine struct {
	Product   string        `json:"product"`
	Unit      string        `json:"unit,omitempty"`
	Quantity  int           `json:"quantity"`
	UnitPrice InvoiceAmount `json:"unitPrice"`
	Amount    InvoiceAmount `json:"amount"`
}

// InvoiceAmount carries the raw value and its INR rendering.
type InvoiceAmount struct {
	Value     decimal.Decimal `json:"value"`
	Formatted string          `json:"formatted"`
}

func amount(value decimal.Decimal) InvoiceAmount {
	return InvoiceAmount{Value: value, Formatted: inr.FormatMoneyDecimal(value)}
}

// Invoice renders the order for its customer, or the caller's shop lines for
// a seller.
func (s *service) Invoice(ctx context.Context, actor Actor, orderID uuid.UUID) (*InvoiceDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}

	var lines []models.OrderItem
	if order.CustomerID == actor.UserID {
		lines = order.Items
	} else {
		for _, item := range order.Items {
			if item.Shop != nil && item.Shop.OwnerID == actor.UserID {
				lines = append(lines, item)
			}
		}
		if len(lines) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
	}
	return buildInvoice(order, lines), nil
}

func buildInvoice(order *models.Order, lines []models.OrderItem) *InvoiceDTO {
	invoice := &InvoiceDTO{
		InvoiceNumber: "INV-" + order.OrderNumber[len("ORD-"):],
		OrderNumber:   order.OrderNumber,
		IssuedAt:      order.CreatedAt,
		Status:        string(order.Status),
		PaymentMode:   string(order.PaymentMode),
		PaymentStatus: string(order.PaymentStatus),
		Sellers:       []InvoiceParty{},
		Lines:         make([]InvoiceLine, 0, len(lines)),
	}
	if order.Customer != nil {
		invoice.Buyer = InvoiceParty{ID: order.Customer.ID, Name: order.Customer.Name, Phone: order.Customer.Phone}
		if order.Customer.Address != nil {
			invoice.Buyer.Address = *order.Customer.Address
		}
	} else {
		invoice.Buyer = InvoiceParty{ID: order.CustomerID}
	}

	subtotal := decimal.Zero
	seen := map[uuid.UUID]bool{}
	for _, item := range lines {
		line := InvoiceLine{
			Product:   item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: amount(item.UnitPrice),
			Amount:    amount(item.Subtotal),
		}
		if item.Product != nil {
			line.Product = item.Product.Name
			line.Unit = item.Product.Unit
		}
		invoice.Lines = append(invoice.Lines, line)
		subtotal = subtotal.Add(item.Subtotal)

		if item.Shop != nil && !seen[item.ShopID] {
			seen[item.ShopID] = true
			invoice.Sellers = append(invoice.Sellers, InvoiceParty{ID: item.Shop.ID, Name: item.Shop.Name, Address: item.Shop.Address})
		}
	}

	tax := decimal.Zero
	invoice.Subtotal = amount(subtotal)
	invoice.Tax = amount(tax)
	invoice.Total = amount(subtotal.Add(tax))
	return invoice
}
