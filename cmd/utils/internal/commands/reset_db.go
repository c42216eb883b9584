package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/logger"
)

// ResetDB drops the kitchen display database. USE WITH CAUTION.
func ResetDB(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	dbName := cfg.GetStringOrDef("db.mongo.name", "appetite_kds")
	log.Info("Dropping database, this cannot be undone", "database", dbName)

	client, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := client.Database(dbName).Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", dbName, err)
	}

	log.Info("Database dropped", "database", dbName)
	return nil
}
