package migrate

import (
	"context"
	"fmt"

	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/logger"
)

// MaybeRunDev migrates the schema on boot. SQLite databases are always
// auto-migrated; Postgres only runs goose in dev with the feature flag on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	sqlite := client.Driver() == db.DriverSQLite
	if !sqlite && (!cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate) {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"dir":    DefaultDir,
		"driver": client.Driver(),
	})
	logg.Info(ctx, "running schema migrations (auto-run)")

	if err := Up(ctx, client, DefaultDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logg.Info(ctx, "schema migrations completed")
	return nil
}
