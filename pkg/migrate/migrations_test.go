package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blissmart/marketplace-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, got %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestMigrationsDeclareUniqueConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_users": {
			"CONSTRAINT users_phone_key UNIQUE (phone)",
			"DROP TABLE IF EXISTS users",
		},
		"create_shops": {
			"CONSTRAINT shops_owner_id_type_key UNIQUE (owner_id, type)",
		},
		"create_products": {
			"CONSTRAINT products_name_key_unit_key UNIQUE (name_key, unit)",
		},
		"create_product_inventories": {
			"CONSTRAINT product_inventories_shop_id_product_id_key UNIQUE (shop_id, product_id)",
			"CHECK (stock >= 0)",
		},
		"create_carts": {
			"CONSTRAINT carts_user_id_key UNIQUE (user_id)",
			"CONSTRAINT cart_items_cart_product_shop_key UNIQUE (cart_id, product_id, shop_id)",
		},
		"create_orders": {
			"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
			"CONSTRAINT trackings_order_id_key UNIQUE (order_id)",
			"'OUT_FOR_DELIVERY'",
		},
		"create_reviews": {
			"CONSTRAINT reviews_user_id_product_id_key UNIQUE (user_id, product_id)",
			"CHECK (rating BETWEEN 1 AND 5)",
		},
		"create_outbox_events": {
			"WHERE published_at IS NULL",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Shop Hours!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_shop_hours.sql") {
		t.Fatalf("unexpected file name %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected validation error for bad filename")
	}
}
