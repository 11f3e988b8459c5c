package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/notifications"
	"github.com/blissmart/marketplace-backend/pkg/background"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
	"github.com/blissmart/marketplace-backend/pkg/metrics"
	"github.com/blissmart/marketplace-backend/pkg/outbox"
	"github.com/blissmart/marketplace-backend/pkg/outbox/payloads"
)

var totalTolerance = decimal.RequireFromString("0.01")

// Service exposes order placement, status changes and order reads.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]OrderDTO, error)
	ShopOrders(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*ShopOrdersDTO, error)
	ShopOrder(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, orderID uuid.UUID) (*OrderDTO, error)
	Purchases(ctx context.Context, customerID uuid.UUID) (*PurchasesDTO, error)
	Invoice(ctx context.Context, actor Actor, orderID uuid.UUID) (*InvoiceDTO, error)
}

type shopLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Shop, error)
	FindByOwnerAndType(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*models.Shop, error)
}

type productLookup interface {
	ExistingProductIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	CountActive(ctx context.Context, shopID uuid.UUID) (int64, error)
}

type service struct {
	tx       db.TxRunner
	repo     *Repository
	shops    shopLookup
	products productLookup
	outbox   outbox.Emitter
	notifier notifications.Notifier
	tasks    background.Submitter
	metrics  *metrics.Marketplace
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles order dependencies.
type ServiceParams struct {
	TxRunner db.TxRunner
	Repo     *Repository
	Shops    shopLookup
	Products productLookup
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
	Tasks    background.Submitter
	Metrics  *metrics.Marketplace
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("order repository required")
	case params.Shops == nil:
		return nil, fmt.Errorf("shop lookup required")
	case params.Products == nil:
		return nil, fmt.Errorf("product lookup required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	tasks := params.Tasks
	if tasks == nil {
		tasks = background.Inline{}
	}
	return &service{
		tx:       params.TxRunner,
		repo:     params.Repo,
		shops:    params.Shops,
		products: params.Products,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		tasks:    tasks,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

type stockKey struct {
	shopID    uuid.UUID
	productID uuid.UUID
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	mode, err := enums.ParsePaymentMode(input.PaymentMode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentMode")
	}
	paymentStatus := enums.PaymentStatusPaid
	if strings.TrimSpace(input.PaymentStatus) != "" {
		if paymentStatus, err = enums.ParsePaymentStatus(input.PaymentStatus); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentStatus")
		}
	}

	total := decimal.Zero
	quantities := map[stockKey]int{}
	shopTotals := map[uuid.UUID]decimal.Decimal{}
	var shopIDs, productIDs []uuid.UUID
	seenShop, seenProduct := map[uuid.UUID]bool{}, map[uuid.UUID]bool{}
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].quantity must be positive", i)
		}
		if item.Price.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].price must not be negative", i)
		}
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(subtotal)
		shopTotals[item.ShopID] = shopTotals[item.ShopID].Add(subtotal)
		quantities[stockKey{item.ShopID, item.ProductID}] += item.Quantity
		if !seenShop[item.ShopID] {
			seenShop[item.ShopID] = true
			shopIDs = append(shopIDs, item.ShopID)
		}
		if !seenProduct[item.ProductID] {
			seenProduct[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}
	if input.TotalAmount.Sub(total).Abs().GreaterThan(totalTolerance) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalAmount does not match the sum of items").
			WithDetails(map[string]any{"expected": total.StringFixed(2), "received": input.TotalAmount.StringFixed(2)})
	}

	shopsByID, err := s.shops.FindByIDs(ctx, shopIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shops")
	}
	existingProducts, err := s.products.ExistingProductIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	missingShops, missingProducts := []string{}, []string{}
	for _, id := range shopIDs {
		if _, ok := shopsByID[id]; !ok {
			missingShops = append(missingShops, id.String())
		}
	}
	for _, id := range productIDs {
		if _, ok := existingProducts[id]; !ok {
			missingProducts = append(missingProducts, id.String())
		}
	}
	if len(missingShops) > 0 || len(missingProducts) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order references unknown shops or products").
			WithDetails(map[string]any{"missingShopIds": missingShops, "missingProductIds": missingProducts})
	}

	now := s.now()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   NewOrderNumber(now),
		CustomerID:    actor.UserID,
		TotalAmount:   total,
		PaymentMode:   mode,
		PaymentStatus: paymentStatus,
		Status:        enums.OrderStatusPlaced,
	}
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			ShopID:    item.ShopID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price.Round(2),
			Subtotal:  item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
		})
	}

	// Decrement in a fixed order so concurrent orders lock rows consistently.
	keys := make([]stockKey, 0, len(quantities))
	for key := range quantities {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].shopID != keys[j].shopID {
			return keys[i].shopID.String() < keys[j].shopID.String()
		}
		return keys[i].productID.String() < keys[j].productID.String()
	})

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}
		if err := repo.CreateTracking(ctx, &models.Tracking{OrderID: order.ID, Status: enums.OrderStatusPlaced}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create tracking")
		}

		var shortages []StockShortage
		for _, key := range keys {
			affected, err := repo.DecrementStock(ctx, key.shopID, key.productID, quantities[key])
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			if affected == 1 {
				continue
			}
			available, err := repo.AvailableStock(ctx, key.shopID, key.productID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock")
			}
			shortages = append(shortages, StockShortage{
				ShopID:    key.shopID,
				ProductID: key.productID,
				Requested: quantities[key],
				Available: available,
			})
		}
		if len(shortages) > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{"items": shortages})
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderPlacedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				ShopIDs:     shopIDs,
				TotalAmount: total.StringFixed(2),
				PaymentMode: string(mode),
				ItemCount:   len(items),
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
		}
		return nil, err
	}

	s.metrics.OrderCreated(string(mode))
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithField(logCtx, "order_number", order.OrderNumber)
		s.logg.Info(logCtx, "order placed")
	}
	s.notifyPlaced(ctx, order, shopsByID, shopTotals)

	saved, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	dto := FromModel(saved)
	return &dto, nil
}

func (s *service) notifyPlaced(ctx context.Context, order *models.Order, shopsByID map[uuid.UUID]*models.Shop, shopTotals map[uuid.UUID]decimal.Decimal) {
	orderNumber := order.OrderNumber
	customerID := order.CustomerID
	total := order.TotalAmount
	actionURL := "/orders/" + order.ID.String()

	owners := make([]notifications.SendInput, 0, len(shopsByID))
	for shopID, shop := range shopsByID {
		owners = append(owners, notifications.SendInput{
			UserID:    shop.OwnerID,
			Title:     "New order received",
			Message:   fmt.Sprintf("Order %s includes items worth ₹%s from %s", orderNumber, shopTotals[shopID].StringFixed(2), shop.Name),
			Type:      enums.NotificationTypeNewOrder,
			ActionURL: &actionURL,
			Metadata:  map[string]any{"orderId": order.ID.String(), "shopId": shopID.String(), "amount": shopTotals[shopID].StringFixed(2)},
		})
	}

	s.submit(ctx, "order.placed.notify", func(taskCtx context.Context) error {
		_, custErr := s.notifier.Send(taskCtx, notifications.SendInput{
			UserID:    customerID,
			Title:     "Order placed",
			Message:   fmt.Sprintf("Your order %s for ₹%s has been placed", orderNumber, total.StringFixed(2)),
			Type:      enums.NotificationTypeOrderPlaced,
			ActionURL: &actionURL,
			Metadata:  map[string]any{"orderId": order.ID.String(), "orderNumber": orderNumber},
		})
		_, ownerErr := s.notifier.SendBulk(taskCtx, owners)
		return multierr.Combine(custErr, ownerErr)
	})
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]any{"allowed": enums.OrderStatusValues()})
	}

	order, err := s.repo.FindPlain(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	owners, err := s.repo.ShopOwners(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order shops")
	}
	isOwner := ownsAny(owners, actor.UserID)
	isCustomer := order.CustomerID == actor.UserID
	switch {
	case isOwner:
	case isCustomer && next == enums.OrderStatusCancelled:
	case isCustomer:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers may only cancel their orders")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this order")
	}

	current := order.Status
	if current != next && !current.CanTransitionTo(next) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", current, next).
			WithDetails(map[string]any{"from": current, "to": next})
	}

	updates := map[string]any{"status": next}
	if input.TrackingNumber != nil {
		updates["tracking_number"] = strings.TrimSpace(*input.TrackingNumber)
	}
	if input.EstimatedDelivery != nil {
		updates["estimated_delivery"] = input.EstimatedDelivery.UTC()
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.UpdateIfStatus(ctx, orderID, current, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently, retry")
		}
		if err := repo.UpsertTracking(ctx, orderID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update tracking")
		}
		if current == next {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				From:        string(current),
				To:          string(next),
				ChangedBy:   actor.UserID,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		return nil, err
	}

	if current != next {
		s.metrics.StatusTransition(string(current), string(next))
		s.notifyStatus(ctx, order, next)
	}

	saved, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	dto := FromModel(saved)
	return &dto, nil
}

func (s *service) notifyStatus(ctx context.Context, order *models.Order, next enums.OrderStatus) {
	input := notifications.SendInput{
		UserID:   order.CustomerID,
		Title:    "Order update",
		Message:  fmt.Sprintf("Your order %s is now %s", order.OrderNumber, humanStatus(next)),
		Type:     enums.NotificationTypeOrderUpdate,
		Metadata: map[string]any{"orderId": order.ID.String(), "status": string(next)},
	}
	s.submit(ctx, "order.status.notify", func(taskCtx context.Context) error {
		_, err := s.notifier.Send(taskCtx, input)
		return err
	})
}

func (s *service) submit(ctx context.Context, name string, task background.Task) {
	if err := s.tasks.Go(ctx, name, task); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "task", name), "background task rejected: "+err.Error())
	}
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if order.CustomerID != actor.UserID {
		owners, err := s.repo.ShopOwners(ctx, orderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order shops")
		}
		if !ownsAny(owners, actor.UserID) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) ShopOrders(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*ShopOrdersDTO, error) {
	result := &ShopOrdersDTO{Orders: []OrderDTO{}, TotalRevenue: decimal.Zero}
	if shopType == enums.ShopTypeWholesale {
		zero := int64(0)
		aov := decimal.Zero
		result.ActiveProducts = &zero
		result.AverageOrderValue = &aov
	}

	shop, err := s.shops.FindByOwnerAndType(ctx, ownerID, shopType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}

	rows, err := s.repo.ListByShop(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shop orders")
	}
	for i := range rows {
		dto := shopView(&rows[i], shop.ID)
		for _, item := range dto.Items {
			result.TotalRevenue = result.TotalRevenue.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		switch {
		case dto.Status.IsPending():
			result.PendingOrders++
		case dto.Status == enums.OrderStatusDelivered:
			result.CompletedOrders++
		}
		result.Orders = append(result.Orders, dto)
	}
	result.TotalOrders = len(result.Orders)
	result.TotalRevenue = result.TotalRevenue.Round(2)

	if shopType == enums.ShopTypeWholesale {
		active, err := s.products.CountActive(ctx, shop.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count active products")
		}
		*result.ActiveProducts = active
		if result.TotalOrders > 0 {
			*result.AverageOrderValue = result.TotalRevenue.Div(decimal.NewFromInt(int64(result.TotalOrders))).Round(2)
		}
	}
	return result, nil
}

func (s *service) ShopOrder(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, orderID uuid.UUID) (*OrderDTO, error) {
	shop, err := s.shops.FindByOwnerAndType(ctx, ownerID, shopType)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load shop")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	dto := shopView(order, shop.ID)
	if len(dto.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return &dto, nil
}

func (s *service) Purchases(ctx context.Context, customerID uuid.UUID) (*PurchasesDTO, error) {
	orders, err := s.ListForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	spent := decimal.Zero
	for _, order := range orders {
		spent = spent.Add(order.TotalAmount)
	}
	return &PurchasesDTO{Orders: orders, TotalOrders: len(orders), TotalSpent: spent.Round(2)}, nil
}

// shopView maps the order keeping only the items sold by shopID.
func shopView(order *models.Order, shopID uuid.UUID) OrderDTO {
	dto := FromModel(order)
	own := dto.Items[:0]
	for _, item := range dto.Items {
		if item.ShopID == shopID {
			own = append(own, item)
		}
	}
	dto.Items = own
	return dto
}

func ownsAny(owners map[uuid.UUID]uuid.UUID, userID uuid.UUID) bool {
	for _, owner := range owners {
		if owner == userID {
			return true
		}
	}
	return false
}

func humanStatus(status enums.OrderStatus) string {
	return strings.ToLower(strings.ReplaceAll(string(status), "_", " "))
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internal)
}
