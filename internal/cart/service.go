package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
)

// Service exposes cart operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type cartRepository interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Load(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, productID, shopID uuid.UUID) (*models.CartItem, error)
	AddItem(ctx context.Context, cartID, productID, shopID uuid.UUID, quantity int, price decimal.Decimal) error
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
	Transaction(ctx context.Context, fn func(repo *Repository) error) error
}

type listingLookup interface {
	FindListing(ctx context.Context, shopID, productID uuid.UUID) (*models.ProductInventory, error)
}

type service struct {
	repo     cartRepository
	listings listingLookup
}

// NewService constructs the cart service.
func NewService(repo cartRepository, listings listingLookup) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing lookup required")
	}
	return &service{repo: repo, listings: listings}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure cart")
	}
	return s.load(ctx, cart.ID)
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	listing, err := s.listings.FindListing(ctx, input.ShopID, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not sold by this shop")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	var cartID uuid.UUID
	err = s.repo.Transaction(ctx, func(repo *Repository) error {
		cart, err := repo.Ensure(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure cart")
		}
		cartID = cart.ID

		requested := input.Quantity
		existing, err := repo.FindItem(ctx, cart.ID, input.ProductID, input.ShopID)
		switch {
		case err == nil:
			requested += existing.Quantity
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
		}
		if requested > listing.Stock {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{"available": listing.Stock, "requested": requested})
		}

		if err := repo.AddItem(ctx, cart.ID, input.ProductID, input.ShopID, input.Quantity, listing.Price); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		return nil, err
	}
	return s.load(ctx, cartID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure cart")
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.load(ctx, cart.ID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure cart")
	}
	if err := s.repo.Clear(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return s.load(ctx, cart.ID)
}

func (s *service) load(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return fromModel(cart), nil
}
