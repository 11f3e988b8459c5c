package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/blissmart/marketplace-backend/api/middleware"
	"github.com/blissmart/marketplace-backend/api/responses"
	"github.com/blissmart/marketplace-backend/internal/orders"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

// currentUser returns the authenticated subject as a uuid.
func currentUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

func currentActor(r *http.Request) (orders.Actor, error) {
	id, err := currentUser(r)
	if err != nil {
		return orders.Actor{}, err
	}
	return orders.Actor{UserID: id, Role: enums.UserRole(middleware.RoleFromContext(r.Context()))}, nil
}

// bodyUserMatches rejects a body userId that names someone other than the caller.
func bodyUserMatches(caller uuid.UUID, bodyUserID string) error {
	if bodyUserID == "" {
		return nil
	}
	parsed, err := uuid.Parse(bodyUserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId")
	}
	if parsed != caller {
		return pkgerrors.New(pkgerrors.CodeForbidden, "userId does not match the authenticated user")
	}
	return nil
}
