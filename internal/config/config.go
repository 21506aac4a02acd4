package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	NotifierLocal = "local"
	NotifierKafka = "kafka"
)

type Config struct {
	ServiceName      string
	HTTPAddr         string
	MetricsAddr      string
	Storage          string
	PostgresDSN      string
	RedisAddr        string
	KafkaBrokers     []string
	Notifier         string
	KafkaNotifyTopic string
	KafkaGroupID     string
	JWTSecret        string
	TokenTTL         time.Duration
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		ServiceName:      getEnv("SERVICE_NAME", "udhaar-ledger"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:      getEnv("METRICS_ADDR", ":9090"),
		Storage:          strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=udhaar sslmode=disable"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKER", "localhost:9092"), ","),
		Notifier:         strings.ToLower(getEnv("NOTIFIER", NotifierLocal)),
		KafkaNotifyTopic: getEnv("KAFKA_NOTIFY_TOPIC", "order-events"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "udhaar-notifier"),
		JWTSecret:        getEnv("JWT_SECRET", "supersecret"),
		TokenTTL:         time.Hour,
	}

	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			slog.Warn("invalid TOKEN_TTL, using default", "value", raw, "default", cfg.TokenTTL)
		} else {
			cfg.TokenTTL = ttl
		}
	}
	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		slog.Warn("unknown STORAGE, using postgres", "value", cfg.Storage)
		cfg.Storage = StoragePostgres
	}
	if cfg.Notifier != NotifierLocal && cfg.Notifier != NotifierKafka {
		slog.Warn("unknown NOTIFIER, using local", "value", cfg.Notifier)
		cfg.Notifier = NotifierLocal
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"storage", cfg.Storage,
		"redis_addr", cfg.RedisAddr,
		"notifier", cfg.Notifier,
		"kafka_brokers", cfg.KafkaBrokers,
		"token_ttl", cfg.TokenTTL)
	return cfg
}
