package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*mongo.Client, error) {
	mongoURL := cfg.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("Connected to MongoDB")
	return client, nil
}
