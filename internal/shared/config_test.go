package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.EnvName)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, ":3001", cfg.HTTPSAddr)
	assert.Equal(t, "file", cfg.StoreBackend)
	assert.Equal(t, 5, cfg.MaxChecks)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Minute, cfg.WorkerInterval)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("UPCHECK_HTTP_ADDR", ":8080")
	t.Setenv("UPCHECK_MAX_CHECKS", "3")
	t.Setenv("UPCHECK_TOKEN_TTL", "30m")
	t.Setenv("UPCHECK_STORE_BACKEND", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 3, cfg.MaxChecks)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
}

func TestLoadConfigProductionPorts(t *testing.T) {
	t.Setenv("UPCHECK_ENV_NAME", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":80", cfg.HTTPAddr)
	assert.Equal(t, ":443", cfg.HTTPSAddr)
}

func TestLoadConfigProductionKeepsExplicitPorts(t *testing.T) {
	t.Setenv("UPCHECK_ENV_NAME", "production")
	t.Setenv("UPCHECK_HTTP_ADDR", ":9000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, ":443", cfg.HTTPSAddr)
}

func TestLoadConfigNegativeMaxChecks(t *testing.T) {
	t.Setenv("UPCHECK_MAX_CHECKS", "-1")

	_, err := LoadConfig()
	assert.Error(t, err)
}
