package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.ReferenceCurrency)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 5*time.Second, cfg.RateTimeout)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.PublicRateLimitRPS)
}

func TestLoadPrefixedOverrides(t *testing.T) {
	t.Setenv("WALLET_JWT_SECRET", testSecret)
	t.Setenv("WALLET_REFERENCE_CURRENCY", "eur")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RATE_TIMEOUT", "45s")
	t.Setenv("PUBLIC_RATE_LIMIT_RPS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.ReferenceCurrency)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.RateTimeout, "timeouts are capped")
	assert.Equal(t, 1, cfg.PublicRateLimitRPS)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing secret", env: map[string]string{}, want: "JWT_SECRET is required"},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}, want: "at least 32"},
		{name: "bad duration", env: map[string]string{"JWT_SECRET": testSecret, "IDEMPOTENCY_TTL": "soon"}, want: "IDEMPOTENCY_TTL"},
		{name: "zero duration", env: map[string]string{"JWT_SECRET": testSecret, "STORE_TIMEOUT": "0s"}, want: "STORE_TIMEOUT must be positive"},
		{name: "bad currency", env: map[string]string{"JWT_SECRET": testSecret, "REFERENCE_CURRENCY": "DOLLAR"}, want: "REFERENCE_CURRENCY"},
		{name: "brokers without topic", env: map[string]string{"JWT_SECRET": testSecret, "KAFKA_BROKERS": "k:9092", "KAFKA_TOPIC": " "}, want: "KAFKA_TOPIC"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
