package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// Repository persists orders, their items and tracking rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateOrder inserts the order row without associations.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *Repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *Repository) CreateTracking(ctx context.Context, tracking *models.Tracking) error {
	return r.db.WithContext(ctx).Create(tracking).Error
}

// DecrementStock removes quantity from a listing only when enough stock
// remains and reports how many rows changed.
func (r *Repository) DecrementStock(ctx context.Context, shopID, productID uuid.UUID, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductInventory{}).
		Where("shop_id = ? AND product_id = ? AND stock >= ?", shopID, productID, quantity).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return res.RowsAffected, res.Error
}

// AvailableStock returns the listing stock, or 0 when the listing is missing.
func (r *Repository) AvailableStock(ctx context.Context, shopID, productID uuid.UUID) (int, error) {
	var stock []int
	if err := r.db.WithContext(ctx).
		Model(&models.ProductInventory{}).
		Where("shop_id = ? AND product_id = ?", shopID, productID).
		Pluck("stock", &stock).Error; err != nil {
		return 0, err
	}
	if len(stock) == 0 {
		return 0, nil
	}
	return stock[0], nil
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("Items.Shop").
		Preload("Tracking").
		Preload("Customer")
}

// FindByID loads an order with items, tracking and customer.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := preloadOrder(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindPlain loads the order row alone.
func (r *Repository) FindPlain(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateIfStatus applies updates only while the order still has the expected
// status, so concurrent transitions cannot both win.
func (r *Repository) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// UpsertTracking mirrors the order status onto its tracking row.
func (r *Repository) UpsertTracking(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	tracking := &models.Tracking{OrderID: orderID, Status: status}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"status":     status,
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(tracking).Error
}

// ShopOwners maps every shop with items in the order to its owner.
func (r *Repository) ShopOwners(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	var rows []struct {
		ShopID  uuid.UUID
		OwnerID uuid.UUID
	}
	if err := r.db.WithContext(ctx).
		Table("order_items").
		Select("DISTINCT order_items.shop_id AS shop_id, shops.owner_id AS owner_id").
		Joins("JOIN shops ON shops.id = order_items.shop_id").
		Where("order_items.order_id = ?", orderID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]uuid.UUID, len(rows))
	for _, row := range rows {
		out[row.ShopID] = row.OwnerID
	}
	return out, nil
}

// ListByShop returns orders with at least one item from the shop, newest first.
func (r *Repository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	sub := r.db.Model(&models.OrderItem{}).Select("order_id").Where("shop_id = ?", shopID)
	if err := preloadOrder(r.db.WithContext(ctx)).
		Where("id IN (?)", sub).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByCustomer returns orders placed by the customer, newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	if err := preloadOrder(r.db.WithContext(ctx)).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
