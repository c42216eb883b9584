package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/kds/cmd/utils/internal/commands"
	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/logger"
)

const (
	appName    = "kds-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := cfg.GetString("log.level")
	logger := logger.New(logLevel)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, cfg, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo orders published")

	case "clear-history":
		if err := commands.ClearHistory(ctx, cfg, logger); err != nil {
			log.Fatalf("Clear history failed: %v", err)
		}
		logger.Info("Ticket history cleared")

	case "reset-db":
		if err := commands.ResetDB(ctx, cfg, logger); err != nil {
			log.Fatalf("Database reset failed: %v", err)
		}
		logger.Info("Database reset completed")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - kitchen display utility commands

Usage:
  %s <command> [--config file.yaml]

Commands:
  seed-demo      Publish the demo orders on orders.kitchen (backdated)
  clear-history  Delete archived tickets (all, or closed before UTILS_HISTORY_BEFORE)
  reset-db       Drop the kitchen display database (USE WITH CAUTION)
  version        Print version information
  help           Show this help message

Environment Variables:
  UTILS_NATS_URL         NATS server URL (default: nats://localhost:4222)
  UTILS_DB_MONGO_URL     MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_DB_MONGO_NAME    Database name (default: appetite_kds)
  UTILS_HISTORY_BEFORE   RFC3339 cutoff for clear-history
  UTILS_LOG_LEVEL        Log level: debug, info, warn, error (default: info)

Examples:
  %s seed-demo
  UTILS_HISTORY_BEFORE=2024-11-01T00:00:00Z %s clear-history
  UTILS_DB_MONGO_URL=mongodb://localhost:27017 %s reset-db

`, appName, appName, appName, appName, appName)
}
