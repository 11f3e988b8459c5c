package models

// All lists every persisted model, in dependency order. Used by SQLite
// auto-migration and repository tests.
func All() []any {
	return []any{
		&User{},
		&Shop{},
		&Product{},
		&ProductInventory{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Tracking{},
		&Notification{},
		&Review{},
		&OutboxEvent{},
	}
}
