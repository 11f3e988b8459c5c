package reviews

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/users"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

type CreateInput struct {
	ProductID uuid.UUID
	Rating    int
	Comment   *string
}

type ReviewDTO struct {
	ID        uuid.UUID      `json:"id"`
	ProductID uuid.UUID      `json:"productId"`
	Rating    int            `json:"rating"`
	Comment   *string        `json:"comment,omitempty"`
	User      *users.Summary `json:"user,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ProductReviewsDTO is the review list of a product with its mean rating.
type ProductReviewsDTO struct {
	Reviews       []ReviewDTO `json:"reviews"`
	AverageRating float64     `json:"averageRating"`
	TotalReviews  int         `json:"totalReviews"`
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error)
	ListForProduct(ctx context.Context, productID uuid.UUID) (*ProductReviewsDTO, error)
}

type reviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
}

type productLookup interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     reviewStore
	products productLookup
	logg     *logger.Logger
}

func NewService(repo reviewStore, products productLookup, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &service{repo: repo, products: products, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if _, err := s.products.FindProduct(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	review := &models.Review{
		UserID:    userID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
	}
	if input.Comment != nil {
		if comment := strings.TrimSpace(*input.Comment); comment != "" {
			review.Comment = &comment
		}
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"product_id": input.ProductID.String(), "rating": input.Rating})
		s.logg.Info(s.logg.WithUserID(logCtx, userID.String()), "review added")
	}

	saved, err := s.repo.FindByID(ctx, review.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload review")
	}
	dto := fromModel(saved)
	return &dto, nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID) (*ProductReviewsDTO, error) {
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := &ProductReviewsDTO{Reviews: make([]ReviewDTO, 0, len(rows)), TotalReviews: len(rows)}
	sum := 0
	for i := range rows {
		sum += rows[i].Rating
		out.Reviews = append(out.Reviews, fromModel(&rows[i]))
	}
	if len(rows) > 0 {
		out.AverageRating = math.Round(float64(sum)/float64(len(rows))*10) / 10
	}
	return out, nil
}

func fromModel(m *models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:        m.ID,
		ProductID: m.ProductID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		dto.User = &users.Summary{ID: m.User.ID, Name: m.User.Name}
	}
	return dto
}
