package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
)

type fakeCatalogService struct {
	searchFn     func(ctx context.Context, query string) ([]catalog.ListingDTO, error)
	getMyShopFn  func(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*shops.ShopDTO, error)
	upsertFn     func(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, input catalog.UpsertListingInput) (*catalog.ListingDTO, error)
	updateFn     func(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, productID uuid.UUID, input catalog.UpdateListingInput) (*catalog.ListingDTO, error)
	shopUpsertFn func(ctx context.Context, ownerID, shopID uuid.UUID, input catalog.UpsertListingInput) (*catalog.ListingDTO, error)
}

func (f fakeCatalogService) ListProducts(ctx context.Context) ([]catalog.ListingDTO, error) {
	return []catalog.ListingDTO{}, nil
}

func (f fakeCatalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*catalog.ProductDetailDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (f fakeCatalogService) ListByCategory(ctx context.Context, category string) ([]catalog.ListingDTO, error) {
	return []catalog.ListingDTO{}, nil
}

func (f fakeCatalogService) Search(ctx context.Context, query string) ([]catalog.ListingDTO, error) {
	return f.searchFn(ctx, query)
}

func (f fakeCatalogService) ListPublicWholesale(ctx context.Context) ([]catalog.ListingDTO, error) {
	return []catalog.ListingDTO{}, nil
}

func (f fakeCatalogService) ListShopProducts(ctx context.Context, shopID uuid.UUID) ([]catalog.ListingDTO, error) {
	return []catalog.ListingDTO{}, nil
}

func (f fakeCatalogService) GetMyShop(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*shops.ShopDTO, error) {
	return f.getMyShopFn(ctx, ownerID, shopType)
}

func (f fakeCatalogService) ListMyProducts(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) ([]catalog.ListingDTO, error) {
	return []catalog.ListingDTO{}, nil
}

func (f fakeCatalogService) UpsertListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, input catalog.UpsertListingInput) (*catalog.ListingDTO, error) {
	return f.upsertFn(ctx, ownerID, shopType, input)
}

func (f fakeCatalogService) UpdateListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, productID uuid.UUID, input catalog.UpdateListingInput) (*catalog.ListingDTO, error) {
	return f.updateFn(ctx, ownerID, shopType, productID, input)
}

func (f fakeCatalogService) DeleteListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, productID uuid.UUID) error {
	return nil
}

func (f fakeCatalogService) UpsertShopListing(ctx context.Context, ownerID, shopID uuid.UUID, input catalog.UpsertListingInput) (*catalog.ListingDTO, error) {
	return f.shopUpsertFn(ctx, ownerID, shopID, input)
}

func (f fakeCatalogService) DeleteShopListing(ctx context.Context, ownerID, shopID, productID uuid.UUID) error {
	return nil
}

func TestSearchProductsSanitizesQuery(t *testing.T) {
	var got string
	svc := fakeCatalogService{
		searchFn: func(ctx context.Context, query string) ([]catalog.ListingDTO, error) {
			got = query
			return []catalog.ListingDTO{}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/products/search/x", requestOpts{
		params: map[string]string{"query": "  basmati    rice "},
	})
	SearchProducts(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got != "basmati rice" {
		t.Fatalf("expected sanitized query got %q", got)
	}
}

func TestGetProductNotFound(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/products/x", requestOpts{
		params: map[string]string{"productId": uuid.NewString()},
	})
	GetProduct(fakeCatalogService{}, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusNotFound, string(pkgerrors.CodeNotFound))
}

func TestStorefrontShopNotFoundBeforeFirstListing(t *testing.T) {
	ownerID := uuid.New()
	svc := fakeCatalogService{
		getMyShopFn: func(ctx context.Context, id uuid.UUID, shopType enums.ShopType) (*shops.ShopDTO, error) {
			if id != ownerID || shopType != enums.ShopTypeRetail {
				t.Fatalf("unexpected lookup %s %s", id, shopType)
			}
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/shop", requestOpts{
		userID: ownerID,
		role:   enums.UserRoleRetailer,
		params: map[string]string{"userId": ownerID.String()},
	})
	StorefrontShop(svc, enums.ShopTypeRetail, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusNotFound, string(pkgerrors.CodeNotFound))
}

func TestStorefrontUpsertProductCreatesListing(t *testing.T) {
	ownerID := uuid.New()
	svc := fakeCatalogService{
		upsertFn: func(ctx context.Context, id uuid.UUID, shopType enums.ShopType, input catalog.UpsertListingInput) (*catalog.ListingDTO, error) {
			if shopType != enums.ShopTypeWholesale {
				t.Fatalf("unexpected shop type %s", shopType)
			}
			if input.Name != "Rice" || input.Stock == nil || *input.Stock != 40 || input.Price == nil || !input.Price.Equal(decimal.RequireFromString("52.5")) {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.WholesalerPrice == nil || !input.WholesalerPrice.Equal(decimal.RequireFromString("48")) {
				t.Fatalf("unexpected wholesaler price %v", input.WholesalerPrice)
			}
			return &catalog.ListingDTO{ID: uuid.New(), Price: *input.Price, Stock: *input.Stock, Wholesale: true}, nil
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/products", requestOpts{
		body:   `{"name":"Rice","price":"52.5","wholesalerPrice":"48","stock":40,"unit":"kg"}`,
		userID: ownerID,
		role:   enums.UserRoleWholesaler,
		params: map[string]string{"userId": ownerID.String()},
	})
	StorefrontUpsertProduct(svc, enums.ShopTypeWholesale, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestStorefrontUpsertProductValidatesStock(t *testing.T) {
	ownerID := uuid.New()
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/products", requestOpts{
		body:   `{"name":"Rice","price":"10","stock":-1}`,
		userID: ownerID,
		params: map[string]string{"userId": ownerID.String()},
	})
	StorefrontUpsertProduct(fakeCatalogService{}, enums.ShopTypeRetail, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
}

func TestStorefrontUpsertProductRequiresPriceAndStock(t *testing.T) {
	ownerID := uuid.New()
	for _, body := range []string{
		`{"name":"Rice","stock":5}`,
		`{"name":"Rice","price":"10"}`,
	} {
		resp := httptest.NewRecorder()
		req := newRequest(http.MethodPost, "/products", requestOpts{
			body:   body,
			userID: ownerID,
			params: map[string]string{"userId": ownerID.String()},
		})
		StorefrontUpsertProduct(fakeCatalogService{}, enums.ShopTypeRetail, nil).ServeHTTP(resp, req)

		expectErrorCode(t, resp, http.StatusBadRequest, string(pkgerrors.CodeValidation))
	}
}

func TestShopUpsertProductUsesCaller(t *testing.T) {
	callerID := uuid.New()
	shopID := uuid.New()
	svc := fakeCatalogService{
		shopUpsertFn: func(ctx context.Context, ownerID, sid uuid.UUID, input catalog.UpsertListingInput) (*catalog.ListingDTO, error) {
			if ownerID != callerID || sid != shopID {
				t.Fatalf("unexpected owner %s shop %s", ownerID, sid)
			}
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop belongs to another user")
		},
	}

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPost, "/api/shops/x/products", requestOpts{
		body:   `{"name":"Dal","price":"90","stock":3}`,
		userID: callerID,
		role:   enums.UserRoleRetailer,
		params: map[string]string{"shopId": shopID.String()},
	})
	ShopUpsertProduct(svc, nil).ServeHTTP(resp, req)

	expectErrorCode(t, resp, http.StatusForbidden, string(pkgerrors.CodeForbidden))
}
