package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/api/responses"
	"github.com/blissmart/marketplace-backend/api/validators"
	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/internal/payments"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

type orderRefRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

// verifyGatewayRequest mirrors the fields the checkout widget posts back.
type verifyGatewayRequest struct {
	OrderID           string `json:"orderId" validate:"required,uuid"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required,max=64"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required,max=64"`
	RazorpaySignature string `json:"razorpay_signature,omitempty" validate:"max=256"`
}

type trackUPIRequest struct {
	OrderID string          `json:"orderId" validate:"required,uuid"`
	Amount  decimal.Decimal `json:"amount"`
	UPIApp  string          `json:"upiApp,omitempty" validate:"max=50"`
}

type verifyUPIRequest struct {
	OrderID       string `json:"orderId" validate:"required,uuid"`
	TransactionID string `json:"transactionId" validate:"required,max=100"`
}

// paymentAction decodes body, resolves the actor and writes the result of call.
func paymentAction[T any](svc payments.Service, logg *logger.Logger, call func(r *http.Request, actor orders.Actor, body T) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "payments")
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := call(r, actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func PaymentCOD(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentAction(svc, logg, func(r *http.Request, actor orders.Actor, body orderRefRequest) (any, error) {
		return svc.CashOnDelivery(r.Context(), actor, uuid.MustParse(body.OrderID))
	})
}

func PaymentCreateGatewayOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentAction(svc, logg, func(r *http.Request, actor orders.Actor, body orderRefRequest) (any, error) {
		return svc.CreateGatewayOrder(r.Context(), actor, uuid.MustParse(body.OrderID))
	})
}

func PaymentVerifyGateway(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentAction(svc, logg, func(r *http.Request, actor orders.Actor, body verifyGatewayRequest) (any, error) {
		return svc.VerifyGatewayPayment(r.Context(), actor, payments.VerifyGatewayInput{
			OrderID:        uuid.MustParse(body.OrderID),
			GatewayOrderID: body.RazorpayOrderID,
			PaymentID:      body.RazorpayPaymentID,
			Signature:      body.RazorpaySignature,
		})
	})
}

func PaymentTrackUPI(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentAction(svc, logg, func(r *http.Request, actor orders.Actor, body trackUPIRequest) (any, error) {
		return svc.TrackUPIAttempt(r.Context(), actor, payments.TrackUPIInput{
			OrderID: uuid.MustParse(body.OrderID),
			Amount:  body.Amount,
			UPIApp:  body.UPIApp,
		})
	})
}

func PaymentVerifyUPI(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentAction(svc, logg, func(r *http.Request, actor orders.Actor, body verifyUPIRequest) (any, error) {
		return svc.VerifyUPIPayment(r.Context(), actor, payments.VerifyUPIInput{
			OrderID:       uuid.MustParse(body.OrderID),
			TransactionID: body.TransactionID,
		})
	})
}

func PaymentCancelUPI(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentAction(svc, logg, func(r *http.Request, actor orders.Actor, body orderRefRequest) (any, error) {
		return svc.CancelUPIPayment(r.Context(), actor, uuid.MustParse(body.OrderID))
	})
}

func PaymentOrderStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "payments")
			return
		}
		actor, err := currentActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.OrderStatus(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
