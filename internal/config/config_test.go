package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is t.Chdir from Go 1.24+, reimplemented for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env here

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.APIBaseURL)
	assert.Equal(t, "http://localhost:4300", cfg.FrontendBaseURL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("API_BASE_URL", "https://shop.example.com/api")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}
