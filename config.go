package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	awspkg "order-service/pkg/aws"
)

type Config struct {
	Port        string
	Environment string

	MongoURL string
	MongoDB  string

	RedisURL string
	CartTTL  time.Duration

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	StripeSecretKey  string
	StripeWebhookKey string
	StripeSuccessURL string
	StripeCancelURL  string
	Currency         string

	KafkaBrokers []string
	KafkaTopic   string

	SNSTopicArn string

	AllowCancelDelivered bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8083"),
		Environment: getEnv("ENVIRONMENT", "development"),

		MongoURL: getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "orders"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		CartTTL:  getDurationEnv("CART_TTL", 720*time.Hour),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_KEY"),
		StripeSuccessURL: getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		StripeCancelURL:  getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
		Currency:         getEnv("CURRENCY", "egp"),

		KafkaTopic:  getEnv("STOCK_TOPIC", "stock.changed"),
		SNSTopicArn: os.Getenv("SNS_TOPIC_ARN"),

		AllowCancelDelivered: getEnv("ALLOW_CANCEL_DELIVERED", "false") == "true",
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		loadSecrets(cfg)
	}

	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

// loadSecrets overlays Secrets Manager values over env defaults. Any secret
// that cannot be read is skipped; the env value stays.
func loadSecrets(cfg *Config) {
	ctx := context.Background()
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	if dbjson, err := sm.GetSecret(ctx, "order/DB_CREDENTIALS"); err == nil && dbjson != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(dbjson), &m); err == nil {
			overlay(&cfg.PostgresUser, m, "POSTGRES_USER")
			overlay(&cfg.PostgresPassword, m, "POSTGRES_PASSWORD")
			overlay(&cfg.PostgresDB, m, "POSTGRES_DB")
			overlay(&cfg.PostgresHost, m, "POSTGRES_HOST")
			overlay(&cfg.PostgresPort, m, "POSTGRES_PORT")
		}
	}

	if stripejson, err := sm.GetSecret(ctx, "order/STRIPE_KEYS"); err == nil && stripejson != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(stripejson), &m); err == nil {
			overlay(&cfg.StripeSecretKey, m, "STRIPE_SECRET_KEY")
			overlay(&cfg.StripeWebhookKey, m, "STRIPE_WEBHOOK_KEY")
		}
	}
}

func overlay(dst *string, m map[string]string, key string) {
	if v, ok := m[key]; ok && v != "" {
		*dst = v
	}
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
