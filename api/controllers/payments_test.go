package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/internal/payments"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
)

type fakePaymentsService struct {
	codFn    func(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*payments.PaymentStatusDTO, error)
	verifyFn func(ctx context.Context, actor orders.Actor, input payments.VerifyGatewayInput) (*payments.PaymentStatusDTO, error)
}

func (f fakePaymentsService) CashOnDelivery(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*payments.PaymentStatusDTO, error) {
	return f.codFn(ctx, actor, orderID)
}

func (f fakePaymentsService) CreateGatewayOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*payments.GatewayOrderDTO, error) {
	return &payments.GatewayOrderDTO{}, nil
}

func (f fakePaymentsService) VerifyGatewayPayment(ctx context.Context, actor orders.Actor, input payments.VerifyGatewayInput) (*payments.PaymentStatusDTO, error) {
	return f.verifyFn(ctx, actor, input)
}

func (f fakePaymentsService) TrackUPIAttempt(ctx context.Context, actor orders.Actor, input payments.TrackUPIInput) (*payments.PaymentStatusDTO, error) {
	return &payments.PaymentStatusDTO{OrderID: input.OrderID}, nil
}

func (f fakePaymentsService) VerifyUPIPayment(ctx context.Context, actor orders.Actor, input payments.VerifyUPIInput) (*payments.PaymentStatusDTO, error) {
	return &payments.PaymentStatusDTO{OrderID: input.OrderID}, nil
}

func (f fakePaymentsService) CancelUPIPayment(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*payments.PaymentStatusDTO, error) {
	return &payments.PaymentStatusDTO{OrderID: orderID}, nil
}

func (f fakePaymentsService) OrderStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*payments.PaymentStatusDTO, error) {
	return &payments.PaymentStatusDTO{OrderID: orderID}, nil
}

func TestPaymentCODConfirmsOrder(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := fakePaymentsService{
		codFn: func(ctx context.Context, actor orders.Actor, id uuid.UUID) (*payments.PaymentStatusDTO, error) {
			if actor.UserID != userID || id != orderID {
				t.Fatalf("unexpected call actor=%+v order=%s", actor, id)
			}
			return &payments.PaymentStatusDTO{
				OrderID:       id,
				Status:        enums.OrderStatusConfirmed,
				PaymentMode:   enums.PaymentModeCOD,
				PaymentStatus: enums.PaymentStatusPending,
			}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/payments/cod", requestOpts{
		body:   fmt.Sprintf(`{"orderId":%q}`, orderID),
		userID: userID,
		role:   enums.UserRoleCustomer,
	})
	PaymentCOD(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var status payments.PaymentStatusDTO
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected CONFIRMED got %s", status.Status)
	}
}

func TestPaymentVerifyMapsGatewayFields(t *testing.T) {
	orderID := uuid.New()
	svc := fakePaymentsService{
		verifyFn: func(ctx context.Context, actor orders.Actor, input payments.VerifyGatewayInput) (*payments.PaymentStatusDTO, error) {
			if input.OrderID != orderID || input.GatewayOrderID != "order_1" || input.PaymentID != "pay_1" || input.Signature != "sig" {
				t.Fatalf("unexpected input %+v", input)
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment signature mismatch")
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/payments/verify", requestOpts{
		body: fmt.Sprintf(`{"orderId":%q,"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`,
			orderID),
		userID: uuid.New(),
		role:   enums.UserRoleCustomer,
	})
	PaymentVerifyGateway(svc, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}

func TestPaymentActionRejectsMissingOrderID(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/payments/cod", requestOpts{
		body:   `{}`,
		userID: uuid.New(),
		role:   enums.UserRoleCustomer,
	})
	PaymentCOD(fakePaymentsService{}, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}

func TestPaymentOrderStatusUsesPathParam(t *testing.T) {
	orderID := uuid.New()
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/payments/order-status/"+orderID.String(), requestOpts{
		userID: uuid.New(),
		role:   enums.UserRoleCustomer,
		params: map[string]string{"orderId": orderID.String()},
	})
	PaymentOrderStatus(fakePaymentsService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
