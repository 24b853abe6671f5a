package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Catalog struct {
		BaseURL string        `koanf:"baseurl"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"catalog"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func (c *testConfig) Validate() error {
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog base url is required")
	}
	return nil
}

func TestLoad_Precedence(t *testing.T) {
	// given
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "catalog:\n  baseurl: https://yaml.example\n  timeout: 3s\nlog:\n  level: info\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TESTSVC_LOG_LEVEL=warn\nUNRELATED=1\n"), 0o600))
	t.Setenv("TESTSVC_CATALOG_BASEURL", "https://env.example")

	defaults := map[string]any{
		"catalog.timeout": "10s",
		"log.level":       "debug",
	}

	// when
	cfg, err := Load[*testConfig]("testsvc", defaults)

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.Catalog.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	// given
	t.Chdir(t.TempDir())

	// when
	cfg, err := Load[*testConfig]("testsvc", map[string]any{"catalog.baseurl": "https://fakestoreapi.com"})

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://fakestoreapi.com", cfg.Catalog.BaseURL)
}

func TestLoad_ValidationFails(t *testing.T) {
	// given
	t.Chdir(t.TempDir())

	// when
	_, err := Load[*testConfig]("testsvc", map[string]any{"log.level": "info"})

	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_ConfigFileOverride(t *testing.T) {
	// given
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog:\n  baseurl: https://custom.example\n"), 0o600))
	t.Setenv("TESTSVC_CONFIG_FILE", path)

	// when
	cfg, err := Load[*testConfig]("testsvc", nil)

	// then
	require.NoError(t, err)
	assert.Equal(t, "https://custom.example", cfg.Catalog.BaseURL)
}
