package configs_test

import (
	"testing"
	"time"

	"github.com/aq2208/goshop-api/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := configs.Load(".", "dev")
	require.NoError(t, err)

	assert.Equal(t, "shop-api", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.NotEmpty(t, cfg.MySQL.DSN)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, "shipment.status.v1", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("GOSHOP_APP__HTTP_ADDR", ":9999")
	t.Setenv("GOSHOP_REDIS__PASSWORD", "hunter2")

	cfg, err := configs.Load(".", "dev")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.App.HTTPAddr)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
}

func TestLoadMissingBase(t *testing.T) {
	_, err := configs.Load(t.TempDir(), "dev")
	assert.Error(t, err)
}
