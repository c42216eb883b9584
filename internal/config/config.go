// Package config loads service configuration from defaults, an optional YAML
// file and namespaced environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults holds the built-in values for every key the service reads.
var Defaults = map[string]interface{}{
	"log.level":             "info",
	"web.port":              ":8080",
	"grpc.port":             ":9090",
	"queue.capacity":        8,
	"queue.dedupe_window":   "15m",
	"sla.attention":         0.70,
	"sla.overdue":           1.00,
	"scheduler.interval":    "1s",
	"stats.wait_per_ticket": 5.0,
	"stats.day_start":       "00:00",
	"stats.timezone":        "Local",
	"stats.log_capacity":    2000,
	"feed.buffer":           64,
	"feed.backlog":          4096,
	"nats.url":              "",
	"nats.stream.enabled":   false,
	"db.mongo.url":          "",
	"db.mongo.name":         "appetite_kds",
	"demo.enabled":          false,
	"demo.interval":         "30s",
	"demo.seed":             false,
	"sse.keepalive":         "30s",
}

type Config struct {
	k *koanf.Koanf
}

// NewConfig returns a config holding only the defaults.
func NewConfig() *Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(Defaults, "."), nil)
	return &Config{k: k}
}

// Load builds the configuration for namespace. args are command line
// arguments; --config points to a YAML file. Environment variables use the
// upper-cased namespace as prefix: KDS_QUEUE_CAPACITY sets queue.capacity and
// KDS_NATS_STREAM_ENABLED sets nats.stream.enabled.
func Load(namespace string, args []string) (*Config, error) {
	fs := pflag.NewFlagSet(strings.ToLower(namespace), pflag.ContinueOnError)
	path := fs.String("config", "", "path to a YAML configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("cannot parse flags: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("cannot load defaults: %w", err)
	}

	if *path != "" {
		if err := k.Load(file.Provider(*path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("cannot load config file %s: %w", *path, err)
		}
	}

	prefix := strings.ToUpper(namespace) + "_"
	if err := k.Load(env.Provider(prefix, ".", envKey(prefix)), nil); err != nil {
		return nil, fmt.Errorf("cannot load environment: %w", err)
	}

	return &Config{k: k}, nil
}

// envKey maps KDS_DB_MONGO_URL to db.mongo.url. Underscores inside a known
// key segment (dedupe_window, wait_per_ticket) are preserved by matching
// against the defaults.
func envKey(prefix string) func(string) string {
	known := make(map[string]string, len(Defaults))
	for key := range Defaults {
		flat := strings.ReplaceAll(strings.ReplaceAll(key, ".", "_"), "-", "_")
		known[flat] = key
	}
	return func(s string) string {
		flat := strings.ToLower(strings.TrimPrefix(s, prefix))
		if key, ok := known[flat]; ok {
			return key
		}
		return strings.ReplaceAll(flat, "_", ".")
	}
}

// Set overrides a key, mostly useful in tests.
func (c *Config) Set(key string, value interface{}) {
	_ = c.k.Load(confmap.Provider(map[string]interface{}{key: value}, "."), nil)
}

func (c *Config) GetString(key string) (string, bool) {
	if c == nil || !c.k.Exists(key) {
		return "", false
	}
	return c.k.String(key), true
}

func (c *Config) GetStringOrDef(key, def string) string {
	if v, ok := c.GetString(key); ok && v != "" {
		return v
	}
	return def
}

func (c *Config) GetInt(key string, def int) int {
	if c == nil || !c.k.Exists(key) {
		return def
	}
	return c.k.Int(key)
}

func (c *Config) GetFloat(key string, def float64) float64 {
	if c == nil || !c.k.Exists(key) {
		return def
	}
	return c.k.Float64(key)
}

func (c *Config) GetBool(key string) bool {
	if c == nil {
		return false
	}
	return c.k.Bool(key)
}

// GetDuration parses values such as "1s" or "15m".
func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	if c == nil || !c.k.Exists(key) {
		return def
	}
	d := c.k.Duration(key)
	if d <= 0 {
		return def
	}
	return d
}
