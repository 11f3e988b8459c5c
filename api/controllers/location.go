package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/blissmart/marketplace-backend/api/responses"
	"github.com/blissmart/marketplace-backend/api/validators"
	"github.com/blissmart/marketplace-backend/internal/location"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

type updateLocationRequest struct {
	ShopID  string   `json:"shopId" validate:"required,uuid"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Address *string  `json:"address,omitempty" validate:"omitempty,max=500"`
}

// NearbyRetailers lists retail shops around ?lat&lng within ?radius km.
func NearbyRetailers(svc location.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "location")
			return
		}
		lat, err := validators.ParseQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if lat == nil || lng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng are required"))
			return
		}
		radius, err := validators.ParseQueryFloat(r, "radius")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := location.NearbyQuery{Lat: *lat, Lng: *lng}
		if radius != nil {
			query.RadiusKm = *radius
		}
		rows, err := svc.NearbyRetailers(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func UpdateShopLocation(svc location.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "location")
			return
		}
		ownerID, err := currentUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateLocationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shop, err := svc.UpdateShopLocation(r.Context(), ownerID, location.UpdateLocationInput{
			ShopID:  uuid.MustParse(body.ShopID),
			Lat:     body.Lat,
			Lng:     body.Lng,
			Address: body.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}
