package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearHistory deletes archived tickets, optionally only those closed
// before history.before.
func ClearHistory(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	filter, err := historyFilter(cfg)
	if err != nil {
		return err
	}

	client, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	dbName := cfg.GetStringOrDef("db.mongo.name", "appetite_kds")
	result, err := client.Database(dbName).Collection("tickets").DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete archived tickets: %w", err)
	}

	log.Info("Deleted archived tickets", "database", dbName, "count", result.DeletedCount)
	return nil
}

func historyFilter(cfg *config.Config) (bson.M, error) {
	raw := cfg.GetStringOrDef("history.before", "")
	if raw == "" {
		return bson.M{}, nil
	}
	before, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid history.before: %w", err)
	}
	return bson.M{"closed_at": bson.M{"$lt": before}}, nil
}
