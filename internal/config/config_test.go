package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "STORAGE", "NOTIFIER", "TOKEN_TTL", "KAFKA_BROKER", "KAFKA_NOTIFY_TOPIC"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, NotifierLocal, cfg.Notifier)
	assert.Equal(t, "order-events", cfg.KafkaNotifyTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "Memory")
	t.Setenv("NOTIFIER", "kafka")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("KAFKA_BROKER", "k1:9092,k2:9092")

	cfg := Load()
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, NotifierKafka, cfg.Notifier)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORAGE", "mongo")
	t.Setenv("NOTIFIER", "carrier-pigeon")
	t.Setenv("TOKEN_TTL", "soon")

	cfg := Load()
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, NotifierLocal, cfg.Notifier)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}
