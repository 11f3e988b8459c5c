package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
)

// ListFilter narrows in-stock listing reads. Zero values mean no filter.
type ListFilter struct {
	ProductID     uuid.UUID
	Category      string
	Query         string
	WholesaleOnly bool
	ShopIDs       []uuid.UUID
}

// Repository persists products and shop inventory rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// FindOrCreateProduct resolves the catalog entry for name and unit, creating it
// when absent. Missing category or description on an existing entry are filled.
func (r *Repository) FindOrCreateProduct(ctx context.Context, name, unit string, category, description *string) (*models.Product, error) {
	if unit == "" {
		unit = models.DefaultProductUnit
	}
	candidate := &models.Product{
		Name:        strings.Join(strings.Fields(name), " "),
		NameKey:     models.ProductNameKey(name),
		Unit:        unit,
		Category:    category,
		Description: description,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_key"}, {Name: "unit"}},
			DoNothing: true,
		}).
		Create(candidate).Error; err != nil {
		return nil, err
	}

	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("name_key = ? AND unit = ?", candidate.NameKey, unit).
		First(&product).Error; err != nil {
		return nil, err
	}

	fill := map[string]any{}
	if product.Category == nil && category != nil {
		fill["category"] = *category
		product.Category = category
	}
	if product.Description == nil && description != nil {
		fill["description"] = *description
		product.Description = description
	}
	if len(fill) > 0 {
		if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", product.ID).Updates(fill).Error; err != nil {
			return nil, err
		}
	}
	return &product, nil
}

// UpsertInventory writes the (shop, product) row, overwriting price, stock and
// the wholesale flag when it already exists.
func (r *Repository) UpsertInventory(ctx context.Context, inv *models.ProductInventory) (*models.ProductInventory, error) {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "wholesaler_price", "stock", "wholesale", "updated_at"}),
		}).
		Create(inv).Error; err != nil {
		return nil, err
	}
	return r.FindListing(ctx, inv.ShopID, inv.ProductID)
}

// FindListing loads one shop's listing with product and shop preloaded.
func (r *Repository) FindListing(ctx context.Context, shopID, productID uuid.UUID) (*models.ProductInventory, error) {
	var inv models.ProductInventory
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Shop").
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateListing applies column updates to one listing.
func (r *Repository) UpdateListing(ctx context.Context, shopID, productID uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProductInventory{}).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteListing(ctx context.Context, shopID, productID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		Delete(&models.ProductInventory{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByShop returns every listing of a shop, including sold-out ones.
func (r *Repository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.ProductInventory, error) {
	var rows []models.ProductInventory
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("shop_id = ?", shopID).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListInStock returns listings with stock > 0 matching the filter.
func (r *Repository) ListInStock(ctx context.Context, filter ListFilter) ([]models.ProductInventory, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ProductInventory{}).
		Preload("Product").
		Preload("Shop").
		Joins("JOIN products ON products.id = product_inventories.product_id").
		Where("product_inventories.stock > 0")

	if filter.WholesaleOnly {
		q = q.Where("product_inventories.wholesale = ?", true)
	}
	if filter.ProductID != uuid.Nil {
		q = q.Where("product_inventories.product_id = ?", filter.ProductID)
	}
	if len(filter.ShopIDs) > 0 {
		q = q.Where("product_inventories.shop_id IN ?", filter.ShopIDs)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		q = q.Where("LOWER(products.category) = ?", strings.ToLower(category))
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ? OR LOWER(products.category) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var rows []models.ProductInventory
	if err := q.Order("product_inventories.updated_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindProduct loads a catalog entry by id.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ExistingProductIDs returns the subset of ids present in the catalog.
func (r *Repository) ExistingProductIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// CountActive counts listings of a shop that still have stock.
func (r *Repository) CountActive(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductInventory{}).
		Where("shop_id = ? AND stock > 0", shopID).
		Count(&count).Error
	return count, err
}

// RatingSummary returns the mean rating and review count for a product.
func (r *Repository) RatingSummary(ctx context.Context, productID uuid.UUID) (float64, int64, error) {
	var row struct {
		Average *float64
		Total   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("AVG(rating) AS average, COUNT(*) AS total").
		Where("product_id = ?", productID).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	if row.Average == nil {
		return 0, row.Total, nil
	}
	return *row.Average, row.Total, nil
}
