package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/kds/cmd/utils/internal/seeding"
	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg"
	"github.com/appetiteclub/kds/pkg/event"
)

// SeedDemo publishes the demo orders to a running service over NATS.
// Redelivery is harmless: the service rejects known order ids.
func SeedDemo(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	natsURL := cfg.GetStringOrDef("nats.url", "nats://localhost:4222")

	publisher, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer publisher.Close()

	log.Info("Connected to NATS", "url", natsURL)

	for _, order := range seeding.DemoOrders(time.Now()) {
		data, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode order %s: %w", order.OrderID, err)
		}
		if err := publisher.Publish(ctx, event.OrdersKitchenTopic, data); err != nil {
			return fmt.Errorf("publish order %s: %w", order.OrderID, err)
		}
		log.Info("Published demo order", "order_id", order.OrderID, "items", len(order.Items))
	}

	return nil
}
