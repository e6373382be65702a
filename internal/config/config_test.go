package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, int32(8), cfg.PGMaxConns)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "32")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("TOKEN_TTL", "2h")

	cfg := Load()
	require.Equal(t, int32(32), cfg.PGMaxConns)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 2*time.Hour, cfg.TokenTTL)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PG_MAX_CONNS", "many")
	t.Setenv("TOKEN_TTL", "tomorrow")

	cfg := Load()
	require.Equal(t, int32(8), cfg.PGMaxConns)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
}
