package orders

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/notifications"
	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/internal/testutil"
	"github.com/blissmart/marketplace-backend/pkg/background"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/outbox"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.SendInput
}

func (r *recordingNotifier) Send(_ context.Context, input notifications.SendInput) (*notifications.NotificationDTO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, input)
	return &notifications.NotificationDTO{ID: uuid.New(), UserID: input.UserID}, nil
}

func (r *recordingNotifier) SendBulk(ctx context.Context, inputs []notifications.SendInput) ([]notifications.NotificationDTO, error) {
	out := make([]notifications.NotificationDTO, 0, len(inputs))
	for _, input := range inputs {
		dto, _ := r.Send(ctx, input)
		out = append(out, *dto)
	}
	return out, nil
}

func (r *recordingNotifier) recipients() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0, len(r.sent))
	for _, input := range r.sent {
		out = append(out, input.UserID)
	}
	return out
}

type orderFixture struct {
	conn     *gorm.DB
	svc      Service
	notifier *recordingNotifier
	customer *models.User
	owner    *models.User
	shop     *models.Shop
	product  *models.Product
}

func newOrderFixture(t *testing.T, name string) orderFixture {
	t.Helper()
	conn := testutil.OpenDB(t, name)
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		TxRunner: db.FromGorm(conn),
		Repo:     NewRepository(conn),
		Shops:    shops.NewRepository(conn),
		Products: catalog.NewRepository(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Notifier: notifier,
		Tasks:    background.Inline{},
	})
	require.NoError(t, err)

	owner := testutil.MustUser(t, conn, enums.UserRoleRetailer)
	shop := testutil.MustShop(t, conn, owner.ID, enums.ShopTypeRetail)
	product := testutil.MustProduct(t, conn, "Rice")
	testutil.MustInventory(t, conn, shop.ID, product.ID, "25", 50)

	return orderFixture{
		conn:     conn,
		svc:      svc,
		notifier: notifier,
		customer: testutil.MustUser(t, conn, enums.UserRoleCustomer),
		owner:    owner,
		shop:     shop,
		product:  product,
	}
}

func (f orderFixture) stock(t *testing.T, shopID, productID uuid.UUID) int {
	t.Helper()
	var inv models.ProductInventory
	require.NoError(t, f.conn.Where("shop_id = ? AND product_id = ?", shopID, productID).First(&inv).Error)
	return inv.Stock
}

func (f orderFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Count(&n).Error)
	return n
}

func (f orderFixture) customerActor() Actor {
	return Actor{UserID: f.customer.ID, Role: enums.UserRoleCustomer}
}

func (f orderFixture) placeOne(t *testing.T, qty int) *OrderDTO {
	t.Helper()
	price := decimal.NewFromInt(25)
	order, err := f.svc.Create(context.Background(), f.customerActor(), CreateOrderInput{
		Items:       []ItemInput{{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: qty, Price: price}},
		PaymentMode: "COD",
		TotalAmount: price.Mul(decimal.NewFromInt(int64(qty))),
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderDecrementsStockAndQueuesEvent(t *testing.T) {
	f := newOrderFixture(t, "orders_create")

	order, err := f.svc.Create(context.Background(), f.customerActor(), CreateOrderInput{
		Items:       []ItemInput{{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: 3, Price: decimal.NewFromInt(25)}},
		PaymentMode: "upi",
		TotalAmount: decimal.NewFromInt(75),
	})
	require.NoError(t, err)

	assert.Equal(t, 47, f.stock(t, f.shop.ID, f.product.ID))
	assert.Equal(t, enums.OrderStatusPlaced, order.Status)
	assert.Equal(t, enums.PaymentModeUPI, order.PaymentMode)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	require.Len(t, order.Items, 1)
	assert.True(t, decimal.NewFromInt(75).Equal(order.Items[0].Subtotal))
	assert.True(t, decimal.NewFromInt(75).Equal(order.TotalAmount))
	require.NotNil(t, order.Tracking)
	assert.Equal(t, enums.OrderStatusPlaced, order.Tracking.Status)
	require.NotNil(t, order.Customer)
	require.NotNil(t, order.Items[0].Product)
	require.NotNil(t, order.Items[0].Shop)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{14}-[0-9A-F]{8}$`), order.OrderNumber)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderPlaced, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)

	assert.ElementsMatch(t, []uuid.UUID{f.customer.ID, f.owner.ID}, f.notifier.recipients())
}

func TestCreateOrderAggregatesQuantitiesPerListing(t *testing.T) {
	f := newOrderFixture(t, "orders_aggregate")
	price := decimal.NewFromInt(25)

	order, err := f.svc.Create(context.Background(), f.customerActor(), CreateOrderInput{
		Items: []ItemInput{
			{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: 2, Price: price},
			{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: 4, Price: price},
		},
		PaymentMode: "COD",
		TotalAmount: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 44, f.stock(t, f.shop.ID, f.product.ID))
}

func TestCreateOrderRejectsMissingIDsWithoutSideEffects(t *testing.T) {
	f := newOrderFixture(t, "orders_missing")
	missingShop, missingProduct := uuid.New(), uuid.New()

	_, err := f.svc.Create(context.Background(), f.customerActor(), CreateOrderInput{
		Items: []ItemInput{
			{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: 1, Price: decimal.NewFromInt(25)},
			{ProductID: missingProduct, ShopID: missingShop, Quantity: 1, Price: decimal.NewFromInt(10)},
		},
		PaymentMode: "COD",
		TotalAmount: decimal.NewFromInt(35),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Equal(t, []string{missingShop.String()}, details["missingShopIds"])
	assert.Equal(t, []string{missingProduct.String()}, details["missingProductIds"])

	assert.Equal(t, 50, f.stock(t, f.shop.ID, f.product.ID))
	assert.Zero(t, f.count(t, &models.Order{}))
	assert.Zero(t, f.count(t, &models.OrderItem{}))
	assert.Empty(t, f.notifier.recipients())
}

func TestCreateOrderInsufficientStockRollsBackEverything(t *testing.T) {
	f := newOrderFixture(t, "orders_shortage")
	scarce := testutil.MustProduct(t, f.conn, "Saffron")
	testutil.MustInventory(t, f.conn, f.shop.ID, scarce.ID, "300", 1)

	_, err := f.svc.Create(context.Background(), f.customerActor(), CreateOrderInput{
		Items: []ItemInput{
			{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: 5, Price: decimal.NewFromInt(25)},
			{ProductID: scarce.ID, ShopID: f.shop.ID, Quantity: 2, Price: decimal.NewFromInt(300)},
		},
		PaymentMode: "COD",
		TotalAmount: decimal.NewFromInt(725),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	shortages := pkgerrors.As(err).Details().(map[string]any)["items"].([]StockShortage)
	require.Len(t, shortages, 1)
	assert.Equal(t, scarce.ID, shortages[0].ProductID)
	assert.Equal(t, 1, shortages[0].Available)

	assert.Equal(t, 50, f.stock(t, f.shop.ID, f.product.ID))
	assert.Equal(t, 1, f.stock(t, f.shop.ID, scarce.ID))
	assert.Zero(t, f.count(t, &models.Order{}))
	assert.Zero(t, f.count(t, &models.Tracking{}))
	assert.Zero(t, f.count(t, &models.OutboxEvent{}))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t, "orders_validation")
	item := ItemInput{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: 1, Price: decimal.NewFromInt(25)}

	cases := map[string]CreateOrderInput{
		"no items":      {PaymentMode: "COD"},
		"bad mode":      {Items: []ItemInput{item}, PaymentMode: "CARD", TotalAmount: decimal.NewFromInt(25)},
		"bad status":    {Items: []ItemInput{item}, PaymentMode: "COD", PaymentStatus: "REFUNDED", TotalAmount: decimal.NewFromInt(25)},
		"zero quantity": {Items: []ItemInput{{ProductID: f.product.ID, ShopID: f.shop.ID, Price: decimal.NewFromInt(25)}}, PaymentMode: "COD"},
		"total off":     {Items: []ItemInput{item}, PaymentMode: "COD", TotalAmount: decimal.RequireFromString("25.02")},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.customerActor(), input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err := f.svc.Create(context.Background(), f.customerActor(), CreateOrderInput{
		Items: []ItemInput{item}, PaymentMode: "COD", TotalAmount: decimal.RequireFromString("25.01"),
	})
	assert.NoError(t, err, "a one paisa rounding difference is tolerated")
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newOrderFixture(t, "orders_status")
	ctx := context.Background()
	order := f.placeOne(t, 2)
	ownerActor := Actor{UserID: f.owner.ID, Role: enums.UserRoleRetailer}

	_, err := f.svc.UpdateStatus(ctx, ownerActor, order.ID, UpdateStatusInput{Status: "shipped"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	unchanged, err := f.svc.Get(ctx, ownerActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, unchanged.Status)

	_, err = f.svc.UpdateStatus(ctx, f.customerActor(), order.ID, UpdateStatusInput{Status: "CONFIRMED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	stranger := testutil.MustUser(t, f.conn, enums.UserRoleRetailer)
	_, err = f.svc.UpdateStatus(ctx, Actor{UserID: stranger.ID, Role: enums.UserRoleRetailer}, order.ID, UpdateStatusInput{Status: "CONFIRMED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	eta := time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)
	tracking := "AWB123"
	delivered, err := f.svc.UpdateStatus(ctx, ownerActor, order.ID, UpdateStatusInput{
		Status: " delivered ", TrackingNumber: &tracking, EstimatedDelivery: &eta,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.Tracking)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Tracking.Status)
	require.NotNil(t, delivered.TrackingNumber)
	assert.Equal(t, "AWB123", *delivered.TrackingNumber)

	_, err = f.svc.UpdateStatus(ctx, ownerActor, order.ID, UpdateStatusInput{Status: "PLACED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	again, err := f.svc.UpdateStatus(ctx, ownerActor, order.ID, UpdateStatusInput{Status: "DELIVERED"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, again.Status)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventOrderStatusChanged).Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestCustomerMayCancel(t *testing.T) {
	f := newOrderFixture(t, "orders_cancel")
	order := f.placeOne(t, 1)

	cancelled, err := f.svc.UpdateStatus(context.Background(), f.customerActor(), order.ID, UpdateStatusInput{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	_, err = f.svc.UpdateStatus(context.Background(), Actor{UserID: f.owner.ID}, order.ID, UpdateStatusInput{Status: "CONFIRMED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestGetHidesOrdersFromStrangers(t *testing.T) {
	f := newOrderFixture(t, "orders_get")
	order := f.placeOne(t, 1)

	_, err := f.svc.Get(context.Background(), f.customerActor(), order.ID)
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), Actor{UserID: uuid.New()}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := f.svc.ListForCustomer(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestShopOrdersAnalytics(t *testing.T) {
	f := newOrderFixture(t, "orders_analytics")
	ctx := context.Background()

	wholesaler := testutil.MustUser(t, f.conn, enums.UserRoleWholesaler)
	wholesale := testutil.MustShop(t, f.conn, wholesaler.ID, enums.ShopTypeWholesale)
	sugar := testutil.MustProduct(t, f.conn, "Sugar")
	oil := testutil.MustProduct(t, f.conn, "Oil")
	testutil.MustInventory(t, f.conn, wholesale.ID, sugar.ID, "40", 100)
	testutil.MustInventory(t, f.conn, wholesale.ID, oil.ID, "150", 0)

	buyer := Actor{UserID: f.owner.ID, Role: enums.UserRoleRetailer}
	first, err := f.svc.Create(ctx, buyer, CreateOrderInput{
		Items: []ItemInput{
			{ProductID: sugar.ID, ShopID: wholesale.ID, Quantity: 10, Price: decimal.NewFromInt(40)},
			{ProductID: f.product.ID, ShopID: f.shop.ID, Quantity: 1, Price: decimal.NewFromInt(25)},
		},
		PaymentMode: "COD",
		TotalAmount: decimal.NewFromInt(425),
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, buyer, CreateOrderInput{
		Items:       []ItemInput{{ProductID: sugar.ID, ShopID: wholesale.ID, Quantity: 5, Price: decimal.NewFromInt(40)}},
		PaymentMode: "COD",
		TotalAmount: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, Actor{UserID: wholesaler.ID}, first.ID, UpdateStatusInput{Status: "DELIVERED"})
	require.NoError(t, err)

	stats, err := f.svc.ShopOrders(ctx, wholesaler.ID, enums.ShopTypeWholesale)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.True(t, decimal.NewFromInt(600).Equal(stats.TotalRevenue), "revenue %s", stats.TotalRevenue)
	assert.Equal(t, 1, stats.PendingOrders)
	assert.Equal(t, 1, stats.CompletedOrders)
	require.NotNil(t, stats.ActiveProducts)
	assert.EqualValues(t, 1, *stats.ActiveProducts)
	require.NotNil(t, stats.AverageOrderValue)
	assert.True(t, decimal.NewFromInt(300).Equal(*stats.AverageOrderValue))
	for _, order := range stats.Orders {
		for _, item := range order.Items {
			assert.Equal(t, wholesale.ID, item.ShopID)
		}
	}

	retail, err := f.svc.ShopOrders(ctx, f.owner.ID, enums.ShopTypeRetail)
	require.NoError(t, err)
	assert.Equal(t, 1, retail.TotalOrders)
	assert.Nil(t, retail.ActiveProducts)
	assert.Nil(t, retail.AverageOrderValue)

	purchases, err := f.svc.Purchases(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, purchases.TotalOrders)
	assert.True(t, decimal.NewFromInt(625).Equal(purchases.TotalSpent))

	empty, err := f.svc.ShopOrders(ctx, uuid.New(), enums.ShopTypeWholesale)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalOrders)
	assert.True(t, empty.AverageOrderValue.IsZero())

	_, err = f.svc.ShopOrder(ctx, f.owner.ID, enums.ShopTypeRetail, first.ID)
	require.NoError(t, err)
}

func TestInvoiceFormatsRupees(t *testing.T) {
	f := newOrderFixture(t, "orders_invoice")
	order := f.placeOne(t, 3)

	invoice, err := f.svc.Invoice(context.Background(), Actor{UserID: f.owner.ID}, order.ID)
	require.NoError(t, err)
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, "Rice", invoice.Lines[0].Product)
	assert.Equal(t, "₹25.00", invoice.Lines[0].UnitPrice.Formatted)
	assert.Equal(t, "₹75.00", invoice.Total.Formatted)
	assert.True(t, invoice.Tax.Value.IsZero())
	require.Len(t, invoice.Sellers, 1)
	assert.Equal(t, f.shop.Name, invoice.Sellers[0].Name)
	assert.Equal(t, f.customer.Name, invoice.Buyer.Name)
	assert.Equal(t, "INV-"+order.OrderNumber[4:], invoice.InvoiceNumber)

	_, err = f.svc.Invoice(context.Background(), Actor{UserID: uuid.New()}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("IST", 19800))
	number := NewOrderNumber(now)
	assert.Regexp(t, `^ORD-20260303233607-[0-9A-F]{8}$`, number)
	assert.NotEqual(t, number, NewOrderNumber(now))
}
