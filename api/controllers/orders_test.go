package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
)

type fakeOrdersService struct {
	createFn       func(ctx context.Context, actor orders.Actor, input orders.CreateOrderInput) (*orders.OrderDTO, error)
	updateStatusFn func(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error)
	getFn          func(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.OrderDTO, error)
	listFn         func(ctx context.Context, customerID uuid.UUID) ([]orders.OrderDTO, error)
	shopOrdersFn   func(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*orders.ShopOrdersDTO, error)
	invoiceFn      func(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.InvoiceDTO, error)
}

func (f fakeOrdersService) Create(ctx context.Context, actor orders.Actor, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	return f.createFn(ctx, actor, input)
}

func (f fakeOrdersService) UpdateStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	return f.updateStatusFn(ctx, actor, orderID, input)
}

func (f fakeOrdersService) Get(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return f.getFn(ctx, actor, orderID)
}

func (f fakeOrdersService) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]orders.OrderDTO, error) {
	return f.listFn(ctx, customerID)
}

func (f fakeOrdersService) ShopOrders(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*orders.ShopOrdersDTO, error) {
	return f.shopOrdersFn(ctx, ownerID, shopType)
}

func (f fakeOrdersService) ShopOrder(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (f fakeOrdersService) Purchases(ctx context.Context, customerID uuid.UUID) (*orders.PurchasesDTO, error) {
	return &orders.PurchasesDTO{}, nil
}

func (f fakeOrdersService) Invoice(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.InvoiceDTO, error) {
	return f.invoiceFn(ctx, actor, orderID)
}

func orderBody(userID string) string {
	return fmt.Sprintf(`{
		"userId": %q,
		"items": [{"productId": %q, "shopId": %q, "quantity": 2, "price": "25.50"}],
		"paymentMode": "COD",
		"totalAmount": "51.00"
	}`, userID, uuid.NewString(), uuid.NewString())
}

func TestCreateOrderPassesActorAndInput(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	var captured orders.CreateOrderInput
	var capturedActor orders.Actor
	svc := fakeOrdersService{
		createFn: func(ctx context.Context, actor orders.Actor, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
			capturedActor = actor
			captured = input
			return &orders.OrderDTO{ID: orderID, OrderNumber: "BM-1", CustomerID: actor.UserID}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/orders", requestOpts{
		body:   orderBody(userID.String()),
		userID: userID,
		role:   enums.UserRoleCustomer,
	})
	CreateOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if capturedActor.UserID != userID || capturedActor.Role != enums.UserRoleCustomer {
		t.Fatalf("unexpected actor %+v", capturedActor)
	}
	if len(captured.Items) != 1 || captured.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", captured.Items)
	}
	if !captured.TotalAmount.Equal(decimal.RequireFromString("51")) {
		t.Fatalf("unexpected total %s", captured.TotalAmount)
	}

	var order orders.OrderDTO
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.ID != orderID {
		t.Fatalf("expected order %s got %s", orderID, order.ID)
	}
}

func TestCreateOrderRejectsForeignUserID(t *testing.T) {
	svc := fakeOrdersService{
		createFn: func(context.Context, orders.Actor, orders.CreateOrderInput) (*orders.OrderDTO, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/orders", requestOpts{
		body:   orderBody(uuid.NewString()),
		userID: uuid.New(),
		role:   enums.UserRoleCustomer,
	})
	CreateOrder(svc, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusForbidden, string(pkgerrors.CodeForbidden))
}

func TestCreateOrderValidatesItems(t *testing.T) {
	svc := fakeOrdersService{}
	body := fmt.Sprintf(`{"items":[{"productId":%q,"shopId":%q,"quantity":0}],"paymentMode":"COD","totalAmount":"0"}`,
		uuid.NewString(), uuid.NewString())

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/orders", requestOpts{body: body, userID: uuid.New(), role: enums.UserRoleCustomer})
	CreateOrder(svc, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}

func TestCreateOrderRequiresPricesAndTotal(t *testing.T) {
	svc := fakeOrdersService{
		createFn: func(context.Context, orders.Actor, orders.CreateOrderInput) (*orders.OrderDTO, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	productID, shopID := uuid.NewString(), uuid.NewString()
	cases := []struct {
		body  string
		field string
	}{
		{
			body:  fmt.Sprintf(`{"items":[{"productId":%q,"shopId":%q,"quantity":2}],"paymentMode":"COD","totalAmount":"0"}`, productID, shopID),
			field: "items[0].price",
		},
		{
			body:  fmt.Sprintf(`{"items":[{"productId":%q,"shopId":%q,"quantity":2,"price":"25.50"}],"paymentMode":"COD"}`, productID, shopID),
			field: "totalAmount",
		},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		req := newRequest(http.MethodPost, "/api/orders", requestOpts{body: tc.body, userID: uuid.New(), role: enums.UserRoleCustomer})
		CreateOrder(svc, nil).ServeHTTP(resp, req)

		expectErrorCode(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
		env := decodeEnvelope(t, resp)
		if env.Error.Details[tc.field] != "is required" {
			t.Fatalf("expected %s to be reported as required, got %v", tc.field, env.Error.Details)
		}
	}
}

func TestCreateOrderRequiresAuthenticatedUser(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/orders", requestOpts{body: orderBody("")})
	CreateOrder(fakeOrdersService{}, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusUnauthorized, string(pkgerrors.CodeUnauthorized))
}

func TestUpdateOrderStatusSurfacesStateConflict(t *testing.T) {
	orderID := uuid.New()
	svc := fakeOrdersService{
		updateStatusFn: func(ctx context.Context, actor orders.Actor, id uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
			if id != orderID {
				t.Fatalf("unexpected order id %s", id)
			}
			if input.Status != "delivered" {
				t.Fatalf("unexpected status %q", input.Status)
			}
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from PENDING to DELIVERED")
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPut, "/api/orders/"+orderID.String()+"/status", requestOpts{
		body:   `{"status":"delivered"}`,
		userID: uuid.New(),
		role:   enums.UserRoleRetailer,
		params: map[string]string{"orderId": orderID.String()},
	})
	UpdateOrderStatus(svc, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusUnprocessableEntity, string(pkgerrors.CodeStateConflict))
}

func TestGetOrderRejectsMalformedID(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/orders/nope", requestOpts{
		userID: uuid.New(),
		role:   enums.UserRoleCustomer,
		params: map[string]string{"orderId": "nope"},
	})
	GetOrder(fakeOrdersService{}, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}

func TestShopOrdersUsesRouteShopType(t *testing.T) {
	ownerID := uuid.New()
	var gotType enums.ShopType
	svc := fakeOrdersService{
		shopOrdersFn: func(ctx context.Context, id uuid.UUID, shopType enums.ShopType) (*orders.ShopOrdersDTO, error) {
			if id != ownerID {
				t.Fatalf("unexpected owner %s", id)
			}
			gotType = shopType
			return &orders.ShopOrdersDTO{}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/wholesaler/"+ownerID.String()+"/orders", requestOpts{
		userID: ownerID,
		role:   enums.UserRoleWholesaler,
		params: map[string]string{"userId": ownerID.String()},
	})
	ShopOrders(svc, enums.ShopTypeWholesale, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotType != enums.ShopTypeWholesale {
		t.Fatalf("expected wholesale shop type got %s", gotType)
	}
}

func TestCustomerOrdersReturnsList(t *testing.T) {
	userID := uuid.New()
	svc := fakeOrdersService{
		listFn: func(ctx context.Context, id uuid.UUID) ([]orders.OrderDTO, error) {
			return []orders.OrderDTO{{ID: uuid.New(), CustomerID: id}, {ID: uuid.New(), CustomerID: id}}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/orders/user/"+userID.String(), requestOpts{
		userID: userID,
		params: map[string]string{"userId": userID.String()},
	})
	CustomerOrders(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var rows []orders.OrderDTO
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 orders got %d", len(rows))
	}
}
