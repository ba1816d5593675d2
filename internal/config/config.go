// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds everything the server needs to start. Optional integrations
// (payments, Redis, Kafka) stay disabled when their settings are empty.
type Config struct {
	DBPath string
	Addr   string

	// AdminIDs are the chat user ids allowed to manage the catalog.
	AdminIDs []int64

	JWTSecret string
	// ConnectorSecretHash is the bcrypt hash connectors authenticate against.
	ConnectorSecretHash string

	PaymentProviderURL string
	RedisAddr          string
	KafkaBroker        string
	KafkaTopic         string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	adminIDs, err := ParseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("parsing ADMIN_IDS: %w", err)
	}

	cfg := &Config{
		DBPath:              envOr("DB_PATH", "cvetlicarna.sqlite3"),
		Addr:                envOr("ADDR", ":8080"),
		AdminIDs:            adminIDs,
		JWTSecret:           os.Getenv("JWT_SECRET"),
		ConnectorSecretHash: os.Getenv("CONNECTOR_SECRET_HASH"),
		PaymentProviderURL:  os.Getenv("PAYMENT_PROVIDER_URL"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		KafkaBroker:         os.Getenv("KAFKA_BROKER"),
		KafkaTopic:          envOr("KAFKA_TOPIC", "orders.created"),
	}
	return cfg, nil
}

// ParseAdminIDs parses a comma-separated id list. Entries may carry a
// trailing "#" comment ("12345 # Mojca") and blanks are skipped.
func ParseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		if i := strings.Index(part, "#"); i >= 0 {
			part = part[:i]
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
