package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// =============================================================================
// Config merge edge cases
// =============================================================================

// TestLoad_ZeroValuesNotMerged documents that an explicit zero in a base-dir
// config doesn't override the default (can't set a field back to zero
// through layering; use the field's sentinel meaning instead).
func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
crawl:
  renderer_recycle_interval: 0
search:
  max_limit: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Crawl.RendererRecycleInterval)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
}

func TestLoad_NegativeMaxPages_Validated(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
crawl:
  max_pages: -10
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	require.Nil(t, cfg)
	assert.Contains(t, err.Error(), "max_pages must be non-negative")
}

func TestLoad_MaxLimitBelowDefaultLimit_Validated(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.DefaultLimit = 50
	cfg.Search.MaxLimit = 10

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_limit")
}

// =============================================================================
// Config file permission edge cases
// =============================================================================

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Test requires non-root user")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".cupertino.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1"), 0o000))
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	cfg, err := Load(tmpDir)

	require.Error(t, err, "Load should fail for unreadable config file")
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read")
}

// =============================================================================
// Config JSON marshaling edge cases
// =============================================================================

func TestConfig_JSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.Crawl.MaxPages = 2000
	cfg.Crawl.MaxDepth = 4
	cfg.Search.DefaultLimit = 10
	cfg.Search.MaxLimit = 40
	cfg.Catalog.OverridePath = "/tmp/catalog-override.yaml"

	data, err := jsonMarshal(cfg)
	require.NoError(t, err)

	var parsed Config
	err = jsonUnmarshal(data, &parsed)
	require.NoError(t, err)

	assert.Equal(t, 2000, parsed.Crawl.MaxPages)
	assert.Equal(t, 4, parsed.Crawl.MaxDepth)
	assert.Equal(t, 10, parsed.Search.DefaultLimit)
	assert.Equal(t, 40, parsed.Search.MaxLimit)
	assert.Equal(t, "/tmp/catalog-override.yaml", parsed.Catalog.OverridePath)
}

// TestConfig_JSON_NeverIncludesGitHubToken guards against accidentally
// dropping the yaml/json "-" tag on a future refactor of CatalogConfig.
func TestConfig_JSON_NeverIncludesGitHubToken(t *testing.T) {
	cfg := NewConfig()
	cfg.Catalog.GitHubToken = "ghp_super_secret"

	data, err := jsonMarshal(cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "ghp_super_secret")
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	invalidJSON := []byte("{invalid json")

	var cfg Config
	err := jsonUnmarshal(invalidJSON, &cfg)

	require.Error(t, err, "Unmarshal should fail for invalid JSON")
}

// =============================================================================
// Default base directory edge cases
// =============================================================================

func TestNewConfig_BaseDir_UsesHomeDir(t *testing.T) {
	cfg := NewConfig()

	assert.NotEmpty(t, cfg.Paths.BaseDir)
	assert.Contains(t, cfg.Paths.BaseDir, ".cupertino")
}

func TestNewConfig_SearchLimits_DefaultOrdering(t *testing.T) {
	cfg := NewConfig()

	assert.LessOrEqual(t, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
}
