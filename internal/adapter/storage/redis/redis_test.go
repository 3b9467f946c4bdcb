package redis

import (
	"context"
	"testing"
	"time"

	"value-ledger/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	opts := options(config.RedisConfig{
		Host:        "redis.internal",
		Port:        6380,
		Password:    "pw",
		DB:          2,
		PoolSize:    40,
		ReadTimeout: 2 * time.Second,
	})

	assert.Equal(t, "redis.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 40, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
	assert.Zero(t, opts.WriteTimeout)
}

func TestNewClient_HealthProbeWrites(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s)}

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	require.NoError(t, hc.Ping(context.Background()))

	assert.True(t, s.Exists(healthKey))
	assert.Equal(t, 10*time.Second, s.TTL(healthKey))
}

func TestHealthCheck_Unreachable(t *testing.T) {
	s, client := newTestClient(t)
	hc := NewHealthCheck(client)
	s.Close()

	assert.ErrorContains(t, hc.Ping(context.Background()), "redis write probe")
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s)}
	s.Close()

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "pinging redis")
}
