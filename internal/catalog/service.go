package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

// Service exposes the catalog read paths and storefront listing management.
type Service interface {
	ListProducts(ctx context.Context) ([]ListingDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDetailDTO, error)
	ListByCategory(ctx context.Context, category string) ([]ListingDTO, error)
	Search(ctx context.Context, query string) ([]ListingDTO, error)
	ListPublicWholesale(ctx context.Context) ([]ListingDTO, error)
	ListShopProducts(ctx context.Context, shopID uuid.UUID) ([]ListingDTO, error)

	GetMyShop(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*shops.ShopDTO, error)
	ListMyProducts(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) ([]ListingDTO, error)
	UpsertListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, input UpsertListingInput) (*ListingDTO, error)
	UpdateListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, productID uuid.UUID, input UpdateListingInput) (*ListingDTO, error)
	DeleteListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, productID uuid.UUID) error

	UpsertShopListing(ctx context.Context, ownerID, shopID uuid.UUID, input UpsertListingInput) (*ListingDTO, error)
	DeleteShopListing(ctx context.Context, ownerID, shopID, productID uuid.UUID) error
}

type catalogRepository interface {
	FindOrCreateProduct(ctx context.Context, name, unit string, category, description *string) (*models.Product, error)
	UpsertInventory(ctx context.Context, inv *models.ProductInventory) (*models.ProductInventory, error)
	FindListing(ctx context.Context, shopID, productID uuid.UUID) (*models.ProductInventory, error)
	UpdateListing(ctx context.Context, shopID, productID uuid.UUID, updates map[string]any) error
	DeleteListing(ctx context.Context, shopID, productID uuid.UUID) error
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.ProductInventory, error)
	ListInStock(ctx context.Context, filter ListFilter) ([]models.ProductInventory, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	RatingSummary(ctx context.Context, productID uuid.UUID) (float64, int64, error)
	Transaction(ctx context.Context, fn func(repo *Repository) error) error
}

type shopRepository interface {
	Ensure(ctx context.Context, owner *models.User, shopType enums.ShopType) (*models.Shop, error)
	FindByOwnerAndType(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*models.Shop, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo  catalogRepository
	shops shopRepository
	users userLookup
	logg  *logger.Logger
}

// NewService wires the catalog service.
func NewService(repo catalogRepository, shopRepo shopRepository, usersRepo userLookup, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if shopRepo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, shops: shopRepo, users: usersRepo, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context) ([]ListingDTO, error) {
	return s.listInStock(ctx, ListFilter{})
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDetailDTO, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	rows, err := s.repo.ListInStock(ctx, ListFilter{ProductID: productID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}
	listings := listingsFromModels(rows)
	avg, total, err := s.repo.RatingSummary(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rating")
	}
	return &ProductDetailDTO{
		ProductDTO:    *productFromModel(product),
		Listings:      listings,
		AverageRating: math.Round(avg*10) / 10,
		TotalReviews:  total,
	}, nil
}

func (s *service) ListByCategory(ctx context.Context, category string) ([]ListingDTO, error) {
	if strings.TrimSpace(category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	return s.listInStock(ctx, ListFilter{Category: category})
}

func (s *service) Search(ctx context.Context, query string) ([]ListingDTO, error) {
	if strings.TrimSpace(query) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	return s.listInStock(ctx, ListFilter{Query: query})
}

func (s *service) ListPublicWholesale(ctx context.Context) ([]ListingDTO, error) {
	return s.listInStock(ctx, ListFilter{WholesaleOnly: true})
}

func (s *service) ListShopProducts(ctx context.Context, shopID uuid.UUID) ([]ListingDTO, error) {
	if _, err := s.shops.FindByID(ctx, shopID); err != nil {
		return nil, notFoundOr(err, "shop not found", "load shop")
	}
	return s.listInStock(ctx, ListFilter{ShopIDs: []uuid.UUID{shopID}})
}

func (s *service) GetMyShop(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*shops.ShopDTO, error) {
	shop, err := s.shops.FindByOwnerAndType(ctx, ownerID, shopType)
	if err != nil {
		return nil, notFoundOr(err, "shop not created yet, add a product first", "load shop")
	}
	dto := shops.FromModel(shop)
	return &dto, nil
}

func (s *service) ListMyProducts(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) ([]ListingDTO, error) {
	shop, err := s.shops.FindByOwnerAndType(ctx, ownerID, shopType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []ListingDTO{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}
	rows, err := s.repo.ListByShop(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shop products")
	}
	return listingsFromModels(rows), nil
}

func (s *service) UpsertListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, input UpsertListingInput) (*ListingDTO, error) {
	if err := validateUpsert(input, shopType); err != nil {
		return nil, err
	}
	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load owner")
	}
	shop, err := s.shops.Ensure(ctx, owner, shopType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure shop")
	}
	return s.saveListing(ctx, shop, input)
}

// UpsertShopListing writes a listing into an existing shop addressed by id.
func (s *service) UpsertShopListing(ctx context.Context, ownerID, shopID uuid.UUID, input UpsertListingInput) (*ListingDTO, error) {
	shop, err := s.ownedShop(ctx, ownerID, shopID)
	if err != nil {
		return nil, err
	}
	if err := validateUpsert(input, shop.Type); err != nil {
		return nil, err
	}
	return s.saveListing(ctx, shop, input)
}

func (s *service) DeleteShopListing(ctx context.Context, ownerID, shopID, productID uuid.UUID) error {
	shop, err := s.ownedShop(ctx, ownerID, shopID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteListing(ctx, shop.ID, productID); err != nil {
		return notFoundOr(err, "listing not found", "delete listing")
	}
	return nil
}

func (s *service) ownedShop(ctx context.Context, ownerID, shopID uuid.UUID) (*models.Shop, error) {
	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		return nil, notFoundOr(err, "shop not found", "load shop")
	}
	if shop.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not the owner of this shop")
	}
	return shop, nil
}

// validateUpsert rejects listings with missing fields before anything is
// written, since an upsert overwrites the stored price and stock.
func validateUpsert(input UpsertListingInput, shopType enums.ShopType) error {
	var missing []string
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if input.Price == nil {
		missing = append(missing, "price")
	}
	if shopType == enums.ShopTypeWholesale && input.WholesalerPrice == nil {
		missing = append(missing, "wholesalerPrice")
	}
	if input.Stock == nil {
		missing = append(missing, "stock")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields: "+strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missing": missing})
	}
	if input.Price.IsNegative() || *input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price and stock must not be negative")
	}
	if input.WholesalerPrice != nil && input.WholesalerPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "wholesalerPrice must not be negative")
	}
	return nil
}

func (s *service) saveListing(ctx context.Context, shop *models.Shop, input UpsertListingInput) (*ListingDTO, error) {
	inv := &models.ProductInventory{
		ShopID:    shop.ID,
		Price:     input.Price.Round(2),
		Stock:     *input.Stock,
		Wholesale: shop.Type == enums.ShopTypeWholesale,
	}
	if input.WholesalerPrice != nil {
		inv.WholesalerPrice = decimal.NewNullDecimal(input.WholesalerPrice.Round(2))
	}

	var saved *models.ProductInventory
	err := s.repo.Transaction(ctx, func(repo *Repository) error {
		product, err := repo.FindOrCreateProduct(ctx, strings.TrimSpace(input.Name), strings.ToLower(strings.TrimSpace(input.Unit)), trimmed(input.Category), trimmed(input.Description))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve product")
		}
		inv.ProductID = product.ID
		if saved, err = repo.UpsertInventory(ctx, inv); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert inventory")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save listing")
		}
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"shop_id": shop.ID.String(), "product_id": inv.ProductID.String()})
		s.logg.Info(logCtx, "listing saved")
	}
	dto := ListingFromModel(saved)
	return &dto, nil
}

func (s *service) UpdateListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, productID uuid.UUID, input UpdateListingInput) (*ListingDTO, error) {
	shop, err := s.shops.FindByOwnerAndType(ctx, ownerID, shopType)
	if err != nil {
		return nil, notFoundOr(err, "listing not found", "load shop")
	}

	updates := map[string]any{}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.WholesalerPrice != nil {
		if input.WholesalerPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesalerPrice must not be negative")
		}
		updates["wholesaler_price"] = decimal.NewNullDecimal(input.WholesalerPrice.Round(2))
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		updates["stock"] = *input.Stock
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	if err := s.repo.UpdateListing(ctx, shop.ID, productID, updates); err != nil {
		return nil, notFoundOr(err, "listing not found", "update listing")
	}
	saved, err := s.repo.FindListing(ctx, shop.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload listing")
	}
	dto := ListingFromModel(saved)
	return &dto, nil
}

func (s *service) DeleteListing(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType, productID uuid.UUID) error {
	shop, err := s.shops.FindByOwnerAndType(ctx, ownerID, shopType)
	if err != nil {
		return notFoundOr(err, "listing not found", "load shop")
	}
	if err := s.repo.DeleteListing(ctx, shop.ID, productID); err != nil {
		return notFoundOr(err, "listing not found", "delete listing")
	}
	return nil
}

func (s *service) listInStock(ctx context.Context, filter ListFilter) ([]ListingDTO, error) {
	rows, err := s.repo.ListInStock(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}
	return listingsFromModels(rows), nil
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internal)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
