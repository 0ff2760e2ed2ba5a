package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pan-pacific/tracking-service/internal/infrastructure/cache"
)

// Storage backends selectable with STORAGE_BACKEND
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendMongoDB  = "mongodb"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	ServerAddr  string         `yaml:"serverAddr"`
	Environment string         `yaml:"environment"`
	LogLevel    string         `yaml:"logLevel"`
	CORSOrigins []string       `yaml:"corsOrigins"`
	Storage     StorageConfig  `yaml:"storage"`
	MongoDB     MongoDBConfig  `yaml:"mongodb"`
	Postgres    PostgresConfig `yaml:"postgres"`
	Redis       RedisConfig    `yaml:"redis"`
	Tracking    TrackingConfig `yaml:"tracking"`
	Tracing     TracingConfig  `yaml:"tracing"`
}

// StorageConfig selects where shipment records live
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	FilePath string `yaml:"filePath"`
}

// MongoDBConfig configures the mongodb backend
type MongoDBConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// PostgresConfig configures the postgres backend
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the tracking lookup cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// TrackingConfig configures tracking ID issuing and lookups
type TrackingConfig struct {
	IDPrefix        string `yaml:"idPrefix"`
	SeedFixtures    bool   `yaml:"seedFixtures"`
	FallbackEnabled bool   `yaml:"fallbackEnabled"`
}

// TracingConfig configures span export
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRate   float64 `yaml:"sampleRate"`
}

func defaultConfig() *Config {
	return &Config{
		ServerAddr:  ":8080",
		Environment: "development",
		LogLevel:    "info",
		Storage: StorageConfig{
			Backend:  BackendMemory,
			FilePath: "data/shipments.json",
		},
		MongoDB: MongoDBConfig{
			URI:      "mongodb://localhost:27017",
			Database: "cargo",
		},
		Redis: RedisConfig{CacheTTL: cache.DefaultTTL},
		Tracking: TrackingConfig{
			IDPrefix:        "PPS",
			SeedFixtures:    true,
			FallbackEnabled: true,
		},
		Tracing: TracingConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// loadConfig layers the optional CONFIG_FILE over the defaults, then the
// environment over both.
func loadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerAddr = getEnv("SERVER_ADDR", cfg.ServerAddr)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	cfg.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.FilePath = getEnv("STORAGE_FILE_PATH", cfg.Storage.FilePath)
	cfg.MongoDB.URI = getEnv("MONGODB_URI", cfg.MongoDB.URI)
	cfg.MongoDB.Database = getEnv("MONGODB_DATABASE", cfg.MongoDB.Database)
	cfg.Postgres.DSN = getEnv("POSTGRES_DSN", cfg.Postgres.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Tracking.IDPrefix = getEnv("TRACKING_ID_PREFIX", cfg.Tracking.IDPrefix)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)

	var err error
	if cfg.Redis.CacheTTL, err = getEnvDuration("TRACKING_CACHE_TTL", cfg.Redis.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.Tracking.SeedFixtures, err = getEnvBool("SEED_FIXTURES", cfg.Tracking.SeedFixtures); err != nil {
		return nil, err
	}
	if cfg.Tracking.FallbackEnabled, err = getEnvBool("TRACKING_FALLBACK_ENABLED", cfg.Tracking.FallbackEnabled); err != nil {
		return nil, err
	}
	if cfg.Tracing.Enabled, err = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("STORAGE_FILE_PATH is required for the %s backend", BackendFile)
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the %s backend", BackendMongoDB)
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
