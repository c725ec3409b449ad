// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

type Config struct {
	Port         string        `mapstructure:"LEDGER_PORT"`
	GRPCPort     string        `mapstructure:"LEDGER_GRPC_PORT"`
	Storage      string        `mapstructure:"LEDGER_STORAGE"`
	DatabaseDSN  string        `mapstructure:"LEDGER_DB_DSN"`
	MongoURI     string        `mapstructure:"LEDGER_MONGO_URI"`
	MongoDB      string        `mapstructure:"LEDGER_MONGO_DB"`
	CacheURL     string        `mapstructure:"LEDGER_CACHE_URL"`
	CacheUser    string        `mapstructure:"LEDGER_CACHE_USER"`
	CachePwd     string        `mapstructure:"LEDGER_CACHE_PWD"`
	CacheTTL     time.Duration `mapstructure:"LEDGER_CACHE_TTL"`
	KafkaURL     string        `mapstructure:"KAFKA_URL"`
	GrantsTopic  string        `mapstructure:"KAFKA_GRANTS_TOPIC"`
	RabbitURL    string        `mapstructure:"RABBIT_URL"`
	SpendWorkers int           `mapstructure:"LEDGER_SPEND_WORKERS"`
	OtelEndpoint string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var keys = []string{
	"LEDGER_PORT", "LEDGER_GRPC_PORT", "LEDGER_STORAGE", "LEDGER_DB_DSN", "LEDGER_MONGO_URI",
	"LEDGER_MONGO_DB", "LEDGER_CACHE_URL", "LEDGER_CACHE_USER", "LEDGER_CACHE_PWD",
	"LEDGER_CACHE_TTL", "KAFKA_URL", "KAFKA_GRANTS_TOPIC", "RABBIT_URL", "LEDGER_SPEND_WORKERS",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

// Load reads path/.env when present; environment variables take precedence.
func Load(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("LEDGER_PORT", "8000")
	v.SetDefault("LEDGER_GRPC_PORT", "9000")
	v.SetDefault("LEDGER_STORAGE", StorageMemory)
	v.SetDefault("LEDGER_MONGO_DB", "ledgerDB")
	v.SetDefault("LEDGER_CACHE_TTL", 5*time.Minute)
	v.SetDefault("KAFKA_GRANTS_TOPIC", "grants")
	v.SetDefault("LEDGER_SPEND_WORKERS", 5)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
	}
	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}
	config.Storage = strings.ToLower(strings.TrimSpace(config.Storage))
	if config.SpendWorkers <= 0 {
		config.SpendWorkers = 1
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("env LEDGER_DB_DSN is not set")
		}
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("env LEDGER_MONGO_URI is not set")
		}
	default:
		return fmt.Errorf("unknown LEDGER_STORAGE %q", c.Storage)
	}
	if c.Port == "" {
		return fmt.Errorf("env LEDGER_PORT is not set")
	}
	return nil
}
