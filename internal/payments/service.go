package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/notifications"
	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/pkg/background"
	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
	"github.com/blissmart/marketplace-backend/pkg/metrics"
	"github.com/blissmart/marketplace-backend/pkg/outbox"
	"github.com/blissmart/marketplace-backend/pkg/outbox/payloads"
)

// Service records how an order is paid. The gateway is mocked; only the
// order's customer may act on its payment.
type Service interface {
	CashOnDelivery(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentStatusDTO, error)
	CreateGatewayOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*GatewayOrderDTO, error)
	VerifyGatewayPayment(ctx context.Context, actor orders.Actor, input VerifyGatewayInput) (*PaymentStatusDTO, error)
	TrackUPIAttempt(ctx context.Context, actor orders.Actor, input TrackUPIInput) (*PaymentStatusDTO, error)
	VerifyUPIPayment(ctx context.Context, actor orders.Actor, input VerifyUPIInput) (*PaymentStatusDTO, error)
	CancelUPIPayment(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentStatusDTO, error)
	OrderStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentStatusDTO, error)
}

type service struct {
	tx       db.TxRunner
	repo     *orders.Repository
	outbox   outbox.Emitter
	notifier notifications.Notifier
	tasks    background.Submitter
	metrics  *metrics.Marketplace
	cfg      config.PaymentsConfig
	logg     *logger.Logger
}

type ServiceParams struct {
	TxRunner db.TxRunner
	Repo     *orders.Repository
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
	Tasks    background.Submitter
	Metrics  *metrics.Marketplace
	Config   config.PaymentsConfig
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("order repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	}
	tasks := params.Tasks
	if tasks == nil {
		tasks = background.Inline{}
	}
	cfg := params.Config
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &service{
		tx:       params.TxRunner,
		repo:     params.Repo,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		tasks:    tasks,
		metrics:  params.Metrics,
		cfg:      cfg,
		logg:     params.Logger,
	}, nil
}

// paymentChange is one payment state write against an order.
type paymentChange struct {
	action        string
	paymentMode   enums.PaymentMode
	paymentStatus enums.PaymentStatus
	status        enums.OrderStatus
	transactionID *string
	notifyTitle   string
	notifyMessage string
}

func (s *service) CashOnDelivery(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentStatusDTO, error) {
	order, err := s.customerOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireUnsettled(order); err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s", order.Status)
	}
	return s.apply(ctx, actor, order, paymentChange{
		action:        "cod",
		paymentMode:   enums.PaymentModeCOD,
		paymentStatus: enums.PaymentStatusPending,
		status:        confirmIfPlaced(order.Status),
		notifyTitle:   "Order confirmed",
		notifyMessage: fmt.Sprintf("Order %s is confirmed, pay ₹%s on delivery", order.OrderNumber, order.TotalAmount.StringFixed(2)),
	})
}

func (s *service) CreateGatewayOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*GatewayOrderDTO, error) {
	order, err := s.customerOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireUnsettled(order); err != nil {
		return nil, err
	}
	if !order.Status.IsPending() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s", order.Status)
	}

	gatewayID := gatewayOrderID(order.ID)
	if order.GatewayOrderID == nil || *order.GatewayOrderID != gatewayID {
		affected, err := s.repo.UpdateIfStatus(ctx, order.ID, order.Status, map[string]any{"gateway_order_id": gatewayID})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store gateway order")
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently, retry")
		}
	}
	return &GatewayOrderDTO{
		ID:       gatewayID,
		Amount:   toPaise(order.TotalAmount),
		Currency: s.cfg.Currency,
		Receipt:  "receipt_" + order.OrderNumber,
		KeyID:    s.cfg.RazorpayKeyID,
	}, nil
}

func (s *service) VerifyGatewayPayment(ctx context.Context, actor orders.Actor, input VerifyGatewayInput) (*PaymentStatusDTO, error) {
	paymentID := strings.TrimSpace(input.PaymentID)
	gatewayID := strings.TrimSpace(input.GatewayOrderID)
	if paymentID == "" || gatewayID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id and payment id are required")
	}
	order, err := s.customerOrder(ctx, actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID != gatewayID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order does not belong to this order")
	}
	if order.TransactionID != nil {
		if *order.TransactionID == paymentID {
			return statusFromModel(order), nil
		}
		return nil, alreadySettled()
	}

	if s.cfg.RazorpayKeySecret != "" && !validSignature(s.cfg.RazorpayKeySecret, gatewayID, paymentID, input.Signature) {
		if _, err := s.apply(ctx, actor, order, paymentChange{
			action:        "verify_gateway",
			paymentMode:   enums.PaymentModeRazorpay,
			paymentStatus: enums.PaymentStatusFailed,
			status:        order.Status,
		}); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment signature mismatch")
	}

	return s.apply(ctx, actor, order, paymentChange{
		action:        "verify_gateway",
		paymentMode:   enums.PaymentModeRazorpay,
		paymentStatus: enums.PaymentStatusPaid,
		status:        confirmIfPlaced(order.Status),
		transactionID: &paymentID,
		notifyTitle:   "Payment received",
		notifyMessage: fmt.Sprintf("Payment of ₹%s for order %s was received", order.TotalAmount.StringFixed(2), order.OrderNumber),
	})
}

func (s *service) TrackUPIAttempt(ctx context.Context, actor orders.Actor, input TrackUPIInput) (*PaymentStatusDTO, error) {
	order, err := s.customerOrder(ctx, actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := requireUnsettled(order); err != nil {
		return nil, err
	}
	if !input.Amount.Round(2).Equal(order.TotalAmount.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match the order total").
			WithDetails(map[string]any{"expected": order.TotalAmount.StringFixed(2), "received": input.Amount.StringFixed(2)})
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "upi_app", strings.TrimSpace(input.UPIApp)), "upi payment attempted")
	}
	return s.apply(ctx, actor, order, paymentChange{
		action:        "track_upi",
		paymentMode:   enums.PaymentModeUPI,
		paymentStatus: enums.PaymentStatusPending,
		status:        order.Status,
	})
}

func (s *service) VerifyUPIPayment(ctx context.Context, actor orders.Actor, input VerifyUPIInput) (*PaymentStatusDTO, error) {
	txnID := strings.TrimSpace(input.TransactionID)
	if txnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transactionId is required")
	}
	order, err := s.customerOrder(ctx, actor, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.TransactionID != nil {
		if *order.TransactionID == txnID {
			return statusFromModel(order), nil
		}
		return nil, alreadySettled()
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s", order.Status)
	}
	return s.apply(ctx, actor, order, paymentChange{
		action:        "verify_upi",
		paymentMode:   enums.PaymentModeUPI,
		paymentStatus: enums.PaymentStatusPaid,
		status:        confirmIfPlaced(order.Status),
		transactionID: &txnID,
		notifyTitle:   "Payment received",
		notifyMessage: fmt.Sprintf("UPI payment %s for order %s was verified", txnID, order.OrderNumber),
	})
}

func (s *service) CancelUPIPayment(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentStatusDTO, error) {
	order, err := s.customerOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireUnsettled(order); err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() || !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot cancel an order that is %s", order.Status)
	}
	return s.apply(ctx, actor, order, paymentChange{
		action:        "cancel_upi",
		paymentMode:   order.PaymentMode,
		paymentStatus: enums.PaymentStatusFailed,
		status:        enums.OrderStatusCancelled,
		notifyTitle:   "Order cancelled",
		notifyMessage: fmt.Sprintf("Payment for order %s was cancelled and the order is closed", order.OrderNumber),
	})
}

func (s *service) OrderStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*PaymentStatusDTO, error) {
	order, err := s.customerOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return statusFromModel(order), nil
}

func (s *service) customerOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	order, err := s.repo.FindPlain(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can manage this payment")
	}
	return order, nil
}

func (s *service) apply(ctx context.Context, actor orders.Actor, order *models.Order, change paymentChange) (*PaymentStatusDTO, error) {
	updates := map[string]any{
		"payment_mode":   change.paymentMode,
		"payment_status": change.paymentStatus,
	}
	if change.status != order.Status {
		updates["status"] = change.status
	}
	if change.transactionID != nil {
		updates["transaction_id"] = *change.transactionID
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.UpdateIfStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated concurrently, retry")
		}
		if change.status != order.Status {
			if err := repo.UpsertTracking(ctx, order.ID, change.status); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update tracking")
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderPaymentUpdatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				PaymentMode:   string(change.paymentMode),
				PaymentStatus: string(change.paymentStatus),
				Status:        string(change.status),
				TransactionID: change.transactionID,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}
		return nil, err
	}

	s.metrics.PaymentUpdated(change.action, string(change.paymentStatus))
	if change.status != order.Status {
		s.metrics.StatusTransition(string(order.Status), string(change.status))
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"action": change.action, "payment_status": string(change.paymentStatus)})
		s.logg.Info(logCtx, "payment updated")
	}
	if change.notifyTitle != "" {
		s.notify(ctx, order, change)
	}

	saved, err := s.repo.FindPlain(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	return statusFromModel(saved), nil
}

func (s *service) notify(ctx context.Context, order *models.Order, change paymentChange) {
	actionURL := "/orders/" + order.ID.String()
	input := notifications.SendInput{
		UserID:    order.CustomerID,
		Title:     change.notifyTitle,
		Message:   change.notifyMessage,
		Type:      enums.NotificationTypePayment,
		ActionURL: &actionURL,
		Metadata:  map[string]any{"orderId": order.ID.String(), "paymentStatus": string(change.paymentStatus)},
	}
	err := s.tasks.Go(ctx, "payment.notify", func(taskCtx context.Context) error {
		_, err := s.notifier.Send(taskCtx, input)
		return err
	})
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "task", "payment.notify"), "background task rejected: "+err.Error())
	}
}

func alreadySettled() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
}

// requireUnsettled rejects orders whose payment was confirmed by a gateway or
// UPI transaction. The paymentStatus chosen at checkout is not proof of payment.
func requireUnsettled(order *models.Order) error {
	if order.TransactionID != nil {
		return alreadySettled()
	}
	return nil
}

func confirmIfPlaced(status enums.OrderStatus) enums.OrderStatus {
	if status == enums.OrderStatusPlaced {
		return enums.OrderStatusConfirmed
	}
	return status
}
