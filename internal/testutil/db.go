// Package testutil seeds in-memory SQLite databases for repository and
// service tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

// OpenDB returns a private in-memory database with every model migrated.
func OpenDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return conn
}

func MustUser(t *testing.T, db *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		ID:           id,
		Name:         "User " + id.String()[:6],
		Phone:        "9" + strings.ReplaceAll(id.String(), "-", "")[:9],
		PasswordHash: "hash",
		Role:         role,
		IsVerified:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustShop(t *testing.T, db *gorm.DB, ownerID uuid.UUID, shopType enums.ShopType) *models.Shop {
	t.Helper()
	shop := &models.Shop{
		Name:    "Shop " + ownerID.String()[:6],
		OwnerID: ownerID,
		Type:    shopType,
		Address: "12 Market Road",
	}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("create shop: %v", err)
	}
	return shop
}

func MustProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	category := "Groceries"
	product := &models.Product{Name: name, Category: &category}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func MustInventory(t *testing.T, db *gorm.DB, shopID, productID uuid.UUID, price string, stock int) *models.ProductInventory {
	t.Helper()
	inv := &models.ProductInventory{
		ShopID:    shopID,
		ProductID: productID,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	return inv
}
