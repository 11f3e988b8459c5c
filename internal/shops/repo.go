package shops

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// Repository handles shop persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Ensure returns the owner's shop of the given type, inserting a placeholder
// row first when none exists. Concurrent callers converge on one row through
// the (owner_id, type) unique constraint.
func (r *Repository) Ensure(ctx context.Context, owner *models.User, shopType enums.ShopType) (*models.Shop, error) {
	candidate := &models.Shop{
		Name:    DefaultName(owner.Name, shopType),
		OwnerID: owner.ID,
		Type:    shopType,
		Address: PlaceholderAddress,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(candidate).Error; err != nil {
		return nil, err
	}
	return r.FindByOwnerAndType(ctx, owner.ID, shopType)
}

func (r *Repository) FindByOwnerAndType(ctx context.Context, ownerID uuid.UUID, shopType enums.ShopType) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND type = ?", ownerID, shopType).
		First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindByID loads a shop by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindByIDs loads shops keyed by id. Missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Shop, error) {
	out := make(map[uuid.UUID]*models.Shop, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Shop
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// ListLocated returns shops of the given type that have coordinates inside
// the bounding box.
func (r *Repository) ListLocated(ctx context.Context, shopType enums.ShopType, minLat, maxLat, minLng, maxLng float64) ([]models.Shop, error) {
	var rows []models.Shop
	if err := r.db.WithContext(ctx).
		Where("type = ? AND lat IS NOT NULL AND lng IS NOT NULL", shopType).
		Where("lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?", minLat, maxLat, minLng, maxLng).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateLocation stores the address and coordinates of a shop.
func (r *Repository) UpdateLocation(ctx context.Context, id uuid.UUID, address string, lat, lng float64) error {
	updates := map[string]any{"lat": lat, "lng": lng}
	if address != "" {
		updates["address"] = address
	}
	res := r.db.WithContext(ctx).Model(&models.Shop{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
