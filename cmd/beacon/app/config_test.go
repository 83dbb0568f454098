package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoteline/beacon/pkg/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultStorePath, config.StorePath)
	assert.Equal(t, constants.DefaultCacheTTL, config.TTL)
	assert.Equal(t, constants.DefaultConcurrency, config.Concurrency)
	assert.Equal(t, constants.MaxRetries, config.MaxRetries)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BEACON_BASE_URL", "https://catalogs.example.com")
	t.Setenv("BEACON_TTL", "2h")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://catalogs.example.com", config.BaseURL)
	assert.Equal(t, 2*time.Hour, config.TTL)
}

func TestUpdateFromFlags(t *testing.T) {
	config := &Config{Format: "json", LogLevel: "info"}

	config.UpdateFromFlags(true, false, true, "", "")

	assert.True(t, config.Verbose)
	assert.False(t, config.Quiet)
	assert.True(t, config.NoColor)
	// Empty flag values keep the configured ones.
	assert.Equal(t, "json", config.Format)
	assert.Equal(t, "info", config.LogLevel)

	config.UpdateFromFlags(false, true, false, "yaml", "debug")
	assert.Equal(t, "yaml", config.Format)
	assert.Equal(t, "debug", config.LogLevel)
}
