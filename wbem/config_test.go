package wbem_test

import (
	"testing"
	"time"

	"github.com/rob-gra/go-wbem/wbem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidRequiresURL(t *testing.T) {
	cfg := wbem.Config{}
	err := cfg.Valid()
	require.Error(t, err)
}

func TestConfigValidFillsDefaults(t *testing.T) {
	cfg := wbem.Config{URL: "https://example.test:5989"}
	require.NoError(t, cfg.Valid())
	assert.Equal(t, "root/cimv2", cfg.DefaultNamespace)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.InDelta(t, 0.1, cfg.BackoffFactor, 1e-9)
}

func TestConfigValidRejectsOutOfRangeTimeout(t *testing.T) {
	cfg := wbem.Config{URL: "https://example.test:5989", Timeout: 2 * time.Hour}
	require.Error(t, cfg.Valid())
}

func TestConfigValidRejectsOutOfRangeRetries(t *testing.T) {
	cfg := wbem.Config{URL: "https://example.test:5989", ConnectRetries: 1000}
	require.Error(t, cfg.Valid())
}

func TestDefaultConfig(t *testing.T) {
	cfg := wbem.DefaultConfig("https://example.test:5989")
	require.NoError(t, cfg.Valid())
	assert.Equal(t, "https://example.test:5989", cfg.URL)
}
