// Package location answers proximity queries over shops and keeps shop
// coordinates current.
package location

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/catalog"
	"github.com/blissmart/marketplace-backend/internal/shops"
	"github.com/blissmart/marketplace-backend/internal/users"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/geo"
	"github.com/blissmart/marketplace-backend/pkg/logger"
	"github.com/blissmart/marketplace-backend/pkg/maps"
)

const (
	DefaultRadiusKm = 10.0
	MaxRadiusKm     = 100.0
	productsPerShop = 5
)

type NearbyQuery struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

type UpdateLocationInput struct {
	ShopID  uuid.UUID
	Lat     *float64
	Lng     *float64
	Address *string
}

// NearbyShopDTO is a retail shop annotated with its distance from the caller.
type NearbyShopDTO struct {
	shops.ShopDTO
	Owner    *users.Summary       `json:"owner,omitempty"`
	Products []catalog.ListingDTO `json:"products"`
	Distance float64              `json:"distance"`
}

type Service interface {
	NearbyRetailers(ctx context.Context, query NearbyQuery) ([]NearbyShopDTO, error)
	UpdateShopLocation(ctx context.Context, ownerID uuid.UUID, input UpdateLocationInput) (*shops.ShopDTO, error)
}

type shopStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	ListLocated(ctx context.Context, shopType enums.ShopType, minLat, maxLat, minLng, maxLng float64) ([]models.Shop, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, address string, lat, lng float64) error
}

type listingLookup interface {
	ListInStock(ctx context.Context, filter catalog.ListFilter) ([]models.ProductInventory, error)
}

type ownerLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
}

type service struct {
	shops    shopStore
	listings listingLookup
	owners   ownerLookup
	geocoder maps.Geocoder
	logg     *logger.Logger
}

type ServiceParams struct {
	Shops    shopStore
	Listings listingLookup
	Owners   ownerLookup
	// Geocoder is optional; without it updates must carry coordinates.
	Geocoder maps.Geocoder
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Shops == nil {
		return nil, fmt.Errorf("shop store required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing lookup required")
	}
	if params.Owners == nil {
		return nil, fmt.Errorf("owner lookup required")
	}
	return &service{
		shops:    params.Shops,
		listings: params.Listings,
		owners:   params.Owners,
		geocoder: params.Geocoder,
		logg:     params.Logger,
	}, nil
}

func (s *service) NearbyRetailers(ctx context.Context, query NearbyQuery) ([]NearbyShopDTO, error) {
	center := geo.Point{Lat: query.Lat, Lng: query.Lng}
	if !center.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be valid coordinates")
	}
	radius := query.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}
	if radius > MaxRadiusKm {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "radius must not exceed %.0f km", MaxRadiusKm)
	}

	minLat, maxLat, minLng, maxLng := geo.BoundingBox(center, radius)
	candidates, err := s.shops.ListLocated(ctx, enums.ShopTypeRetail, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list located shops")
	}

	out := make([]NearbyShopDTO, 0, len(candidates))
	shopIDs := make([]uuid.UUID, 0, len(candidates))
	ownerIDs := make([]uuid.UUID, 0, len(candidates))
	for i := range candidates {
		shop := &candidates[i]
		distance := geo.DistanceKm(center, geo.Point{Lat: *shop.Lat, Lng: *shop.Lng})
		if distance > radius {
			continue
		}
		out = append(out, NearbyShopDTO{
			ShopDTO:  shops.FromModel(shop),
			Products: []catalog.ListingDTO{},
			Distance: geo.Round2(distance),
		})
		shopIDs = append(shopIDs, shop.ID)
		ownerIDs = append(ownerIDs, shop.OwnerID)
	}
	if len(out) == 0 {
		return out, nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })

	listings, err := s.listings.ListInStock(ctx, catalog.ListFilter{ShopIDs: shopIDs})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shop products")
	}
	byShop := map[uuid.UUID][]catalog.ListingDTO{}
	for i := range listings {
		shopID := listings[i].ShopID
		if len(byShop[shopID]) < productsPerShop {
			byShop[shopID] = append(byShop[shopID], catalog.ListingFromModel(&listings[i]))
		}
	}
	owners, err := s.owners.FindByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop owners")
	}
	for i := range out {
		if products, ok := byShop[out[i].ID]; ok {
			out[i].Products = products
		}
		out[i].Owner = users.SummaryFromModel(owners[out[i].OwnerID])
	}
	return out, nil
}

func (s *service) UpdateShopLocation(ctx context.Context, ownerID uuid.UUID, input UpdateLocationInput) (*shops.ShopDTO, error) {
	shop, err := s.shops.FindByID(ctx, input.ShopID)
	if err != nil {
		return nil, notFoundOr(err, "shop not found", "load shop")
	}
	if shop.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not the owner of this shop")
	}

	address := ""
	if input.Address != nil {
		address = strings.TrimSpace(*input.Address)
	}

	var point geo.Point
	switch {
	case input.Lat != nil && input.Lng != nil:
		point = geo.Point{Lat: *input.Lat, Lng: *input.Lng}
	case input.Lat != nil || input.Lng != nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be provided together")
	case address != "" && s.geocoder != nil:
		place, err := s.geocoder.Geocode(ctx, address)
		if err != nil {
			if pkgerrors.As(err) != nil {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "geocode address")
		}
		point = geo.Point{Lat: place.Lat, Lng: place.Lng}
		if place.FormattedAddress != "" {
			address = place.FormattedAddress
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng are required")
	}
	if !point.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be valid coordinates")
	}

	if err := s.shops.UpdateLocation(ctx, shop.ID, address, point.Lat, point.Lng); err != nil {
		return nil, notFoundOr(err, "shop not found", "update shop location")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"shop_id": shop.ID.String(), "lat": point.Lat, "lng": point.Lng})
		s.logg.Info(logCtx, "shop location updated")
	}

	saved, err := s.shops.FindByID(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload shop")
	}
	dto := shops.FromModel(saved)
	return &dto, nil
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internal)
}
