package payments

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/notifications"
	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/internal/testutil"
	"github.com/blissmart/marketplace-backend/pkg/background"
	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/outbox"
)

type stubNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (s *stubNotifier) Send(_ context.Context, input notifications.SendInput) (*notifications.NotificationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, input.Title)
	return &notifications.NotificationDTO{UserID: input.UserID, Title: input.Title}, nil
}

func (s *stubNotifier) SendBulk(ctx context.Context, inputs []notifications.SendInput) ([]notifications.NotificationDTO, error) {
	out := make([]notifications.NotificationDTO, 0, len(inputs))
	for _, input := range inputs {
		dto, _ := s.Send(ctx, input)
		out = append(out, *dto)
	}
	return out, nil
}

type paymentFixture struct {
	conn     *gorm.DB
	svc      Service
	orders   orders.Service
	notifier *stubNotifier
	customer orders.Actor
	order    *orders.OrderDTO
}

func newPaymentFixture(t *testing.T, name string, cfg config.PaymentsConfig) paymentFixture {
	t.Helper()
	return newPaymentFixtureWithStatus(t, name, cfg, "PENDING")
}

// newPaymentFixtureWithStatus places the order with the given checkout
// paymentStatus; an empty value keeps the order default.
func newPaymentFixtureWithStatus(t *testing.T, name string, cfg config.PaymentsConfig, paymentStatus string) paymentFixture {
	t.Helper()
	conn := testutil.OpenDB(t, name)
	notifier := &stubNotifier{}
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	repo := orders.NewRepository(conn)

	orderSvc, err := orders.NewService(orders.ServiceParams{
		TxRunner: db.FromGorm(conn),
		Repo:     repo,
		Shops:    shops.NewRepository(conn),
		Products: catalog.NewRepository(conn),
		Outbox:   emitter,
		Notifier: &stubNotifier{},
		Tasks:    background.Inline{},
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		TxRunner: db.FromGorm(conn),
		Repo:     repo,
		Outbox:   emitter,
		Notifier: notifier,
		Tasks:    background.Inline{},
		Config:   cfg,
	})
	require.NoError(t, err)

	owner := testutil.MustUser(t, conn, enums.UserRoleRetailer)
	shop := testutil.MustShop(t, conn, owner.ID, enums.ShopTypeRetail)
	product := testutil.MustProduct(t, conn, "Tea")
	testutil.MustInventory(t, conn, shop.ID, product.ID, "120.50", 10)
	customer := testutil.MustUser(t, conn, enums.UserRoleCustomer)
	actor := orders.Actor{UserID: customer.ID, Role: enums.UserRoleCustomer}

	order, err := orderSvc.Create(context.Background(), actor, orders.CreateOrderInput{
		Items:         []orders.ItemInput{{ProductID: product.ID, ShopID: shop.ID, Quantity: 2, Price: decimal.RequireFromString("120.50")}},
		PaymentMode:   "UPI",
		PaymentStatus: paymentStatus,
		TotalAmount:   decimal.NewFromInt(241),
	})
	require.NoError(t, err)

	return paymentFixture{conn: conn, svc: svc, orders: orderSvc, notifier: notifier, customer: actor, order: order}
}

func (f paymentFixture) paymentEvents(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderPaymentUpdated).Count(&n).Error)
	return n
}

func (f paymentFixture) trackingStatus(t *testing.T) enums.OrderStatus {
	t.Helper()
	var tracking models.Tracking
	require.NoError(t, f.conn.Where("order_id = ?", f.order.ID).First(&tracking).Error)
	return tracking.Status
}

func TestCashOnDeliveryConfirmsOrder(t *testing.T) {
	f := newPaymentFixture(t, "payments_cod", config.PaymentsConfig{})

	status, err := f.svc.CashOnDelivery(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentModeCOD, status.PaymentMode)
	assert.Equal(t, enums.PaymentStatusPending, status.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, status.Status)
	assert.Equal(t, enums.OrderStatusConfirmed, f.trackingStatus(t))
	assert.EqualValues(t, 1, f.paymentEvents(t))
	assert.Equal(t, []string{"Order confirmed"}, f.notifier.titles)
}

func TestDefaultPaidOrderAcceptsCashOnDelivery(t *testing.T) {
	f := newPaymentFixtureWithStatus(t, "payments_default_cod", config.PaymentsConfig{}, "")
	require.Equal(t, enums.PaymentStatusPaid, f.order.PaymentStatus)

	status, err := f.svc.CashOnDelivery(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentModeCOD, status.PaymentMode)
	assert.Equal(t, enums.PaymentStatusPending, status.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, status.Status)
	assert.EqualValues(t, 1, f.paymentEvents(t))
}

func TestDefaultPaidOrderCanBeCancelledOnce(t *testing.T) {
	f := newPaymentFixtureWithStatus(t, "payments_default_cancel", config.PaymentsConfig{}, "")
	ctx := context.Background()

	cancelled, err := f.svc.CancelUPIPayment(ctx, f.customer, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.PaymentStatusFailed, cancelled.PaymentStatus)

	_, err = f.svc.CancelUPIPayment(ctx, f.customer, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.CashOnDelivery(ctx, f.customer, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.EqualValues(t, 1, f.paymentEvents(t))
	assert.Equal(t, []string{"Order cancelled"}, f.notifier.titles)
}

func TestPaymentEndpointsAreCustomerOnly(t *testing.T) {
	f := newPaymentFixture(t, "payments_authz", config.PaymentsConfig{})
	stranger := orders.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	_, err := f.svc.OrderStatus(context.Background(), stranger, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.CashOnDelivery(context.Background(), stranger, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.OrderStatus(context.Background(), f.customer, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Zero(t, f.paymentEvents(t))
}

func TestGatewayOrderIsDeterministicAndInPaise(t *testing.T) {
	f := newPaymentFixture(t, "payments_gateway_create", config.PaymentsConfig{RazorpayKeyID: "rzp_test", Currency: "INR"})

	first, err := f.svc.CreateGatewayOrder(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	second, err := f.svc.CreateGatewayOrder(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Regexp(t, `^order_[0-9a-f]{14}$`, first.ID)
	assert.EqualValues(t, 24100, first.Amount)
	assert.Equal(t, "INR", first.Currency)
	assert.Equal(t, "rzp_test", first.KeyID)
	assert.Equal(t, "receipt_"+f.order.OrderNumber, first.Receipt)
}

func TestVerifyGatewayPaymentChecksSignature(t *testing.T) {
	f := newPaymentFixture(t, "payments_gateway_verify", config.PaymentsConfig{RazorpayKeySecret: "shh"})
	ctx := context.Background()
	gatewayOrder, err := f.svc.CreateGatewayOrder(ctx, f.customer, f.order.ID)
	require.NoError(t, err)

	_, err = f.svc.VerifyGatewayPayment(ctx, f.customer, VerifyGatewayInput{
		OrderID: f.order.ID, GatewayOrderID: gatewayOrder.ID, PaymentID: "pay_1", Signature: "deadbeef",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	failed, err := f.svc.OrderStatus(ctx, f.customer, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, failed.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPlaced, failed.Status)

	_, err = f.svc.VerifyGatewayPayment(ctx, f.customer, VerifyGatewayInput{
		OrderID: f.order.ID, GatewayOrderID: "order_other", PaymentID: "pay_2", Signature: Signature("shh", "order_other", "pay_2"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	paid, err := f.svc.VerifyGatewayPayment(ctx, f.customer, VerifyGatewayInput{
		OrderID: f.order.ID, GatewayOrderID: gatewayOrder.ID, PaymentID: "pay_2", Signature: Signature("shh", gatewayOrder.ID, "pay_2"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, enums.PaymentModeRazorpay, paid.PaymentMode)
	assert.Equal(t, enums.OrderStatusConfirmed, paid.Status)
	require.NotNil(t, paid.TransactionID)
	assert.Equal(t, "pay_2", *paid.TransactionID)

	again, err := f.svc.VerifyGatewayPayment(ctx, f.customer, VerifyGatewayInput{
		OrderID: f.order.ID, GatewayOrderID: gatewayOrder.ID, PaymentID: "pay_2", Signature: Signature("shh", gatewayOrder.ID, "pay_2"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, again.PaymentStatus)
	assert.EqualValues(t, 2, f.paymentEvents(t))
}

func TestUPIFlow(t *testing.T) {
	f := newPaymentFixture(t, "payments_upi", config.PaymentsConfig{})
	ctx := context.Background()

	_, err := f.svc.TrackUPIAttempt(ctx, f.customer, TrackUPIInput{OrderID: f.order.ID, Amount: decimal.NewFromInt(240), UPIApp: "gpay"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "241.00", pkgerrors.As(err).Details().(map[string]any)["expected"])

	tracked, err := f.svc.TrackUPIAttempt(ctx, f.customer, TrackUPIInput{OrderID: f.order.ID, Amount: decimal.RequireFromString("241.00"), UPIApp: "gpay"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, tracked.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPlaced, tracked.Status)

	_, err = f.svc.VerifyUPIPayment(ctx, f.customer, VerifyUPIInput{OrderID: f.order.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	verified, err := f.svc.VerifyUPIPayment(ctx, f.customer, VerifyUPIInput{OrderID: f.order.ID, TransactionID: " UPI123 "})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, verified.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, verified.Status)
	require.NotNil(t, verified.TransactionID)
	assert.Equal(t, "UPI123", *verified.TransactionID)
	assert.Equal(t, enums.OrderStatusConfirmed, f.trackingStatus(t))

	_, err = f.svc.VerifyUPIPayment(ctx, f.customer, VerifyUPIInput{OrderID: f.order.ID, TransactionID: "UPI999"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.CancelUPIPayment(ctx, f.customer, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	assert.Equal(t, []string{"Payment received"}, f.notifier.titles)
}

func TestCancelUPIPaymentClosesOrder(t *testing.T) {
	f := newPaymentFixture(t, "payments_cancel", config.PaymentsConfig{})
	ctx := context.Background()

	cancelled, err := f.svc.CancelUPIPayment(ctx, f.customer, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, cancelled.PaymentStatus)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.OrderStatusCancelled, f.trackingStatus(t))
	assert.Equal(t, []string{"Order cancelled"}, f.notifier.titles)

	_, err = f.svc.CancelUPIPayment(ctx, f.customer, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.VerifyUPIPayment(ctx, f.customer, VerifyUPIInput{OrderID: f.order.ID, TransactionID: "late"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestSignatureMatchesKnownVector(t *testing.T) {
	sig := Signature("secret", "order_abc", "pay_xyz")
	assert.Len(t, sig, 64)
	assert.True(t, validSignature("secret", "order_abc", "pay_xyz", sig))
	assert.False(t, validSignature("other", "order_abc", "pay_xyz", sig))
}
