package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Default configuration
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 1, cfg.Version)
	assert.Contains(t, cfg.Paths.BaseDir, ".cupertino")

	assert.Equal(t, "500ms", cfg.Crawl.PolitenessDelay)
	assert.Equal(t, 0, cfg.Crawl.MaxPages)
	assert.Equal(t, 0, cfg.Crawl.MaxDepth)
	assert.Equal(t, 50, cfg.Crawl.RendererRecycleInterval)
	assert.Equal(t, 2, cfg.Crawl.MaxRetries)

	assert.Equal(t, "5m", cfg.HTTP.RequestTimeout)
	assert.Equal(t, "10m", cfg.HTTP.TotalTimeout)
	assert.Equal(t, "30s", cfg.HTTP.RenderTimeout)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.False(t, cfg.Search.IncludeArchiveByDefault)

	assert.Empty(t, cfg.Catalog.GitHubToken)
}

func TestNewConfig_PassesValidate(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// File loading
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 50, cfg.Crawl.RendererRecycleInterval)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
crawl:
  max_pages: 500
  max_depth: 3
  politeness_delay: 1s
search:
  default_limit: 10
  max_limit: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Crawl.MaxPages)
	assert.Equal(t, 3, cfg.Crawl.MaxDepth)
	assert.Equal(t, "1s", cfg.Crawl.PolitenessDelay)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
server:
  log_level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte("version: 1\nserver:\n  log_level: warn\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yml"), []byte("version: 1\nserver:\n  log_level: error\n"), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := "version: 1\ncrawl:\n  max_pages: [invalid yaml syntax\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte(invalidContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_InvalidPolitenessDelay_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte("version: 1\ncrawl:\n  politeness_delay: not-a-duration\n"), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidTransport_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte("version: 1\nserver:\n  transport: sse\n"), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "transport")
}

// =============================================================================
// Environment variable overrides
// =============================================================================

func TestLoad_EnvVarOverridesBaseDir(t *testing.T) {
	tmpDir := t.TempDir()
	custom := filepath.Join(tmpDir, "custom-base")
	t.Setenv("CUPERTINO_BASE_DIR", custom)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, custom, cfg.Paths.BaseDir)
}

func TestLoad_EnvVarOverridesMaxPages(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CUPERTINO_MAX_PAGES", "250")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Crawl.MaxPages)
}

func TestLoad_EnvVarOverridesLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CUPERTINO_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_EnvVarOverridesYaml(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".cupertino.yaml"), []byte("version: 1\ncrawl:\n  max_retries: 1\n"), 0o644))
	t.Setenv("CUPERTINO_MAX_RETRIES", "4")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Crawl.MaxRetries)
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CUPERTINO_LOG_LEVEL", "")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestLoad_GitHubTokenAbsent_IsNonFatal(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CUPERTINO_GITHUB_TOKEN", "")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Empty(t, cfg.Catalog.GitHubToken)
}

func TestLoad_GitHubTokenSet_IsAppliedButNeverWritten(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CUPERTINO_GITHUB_TOKEN", "ghp_example")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "ghp_example", cfg.Catalog.GitHubToken)

	out := filepath.Join(tmpDir, "written.yaml")
	require.NoError(t, cfg.WriteYAML(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ghp_example")
}

// =============================================================================
// User/global configuration
// =============================================================================

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := GetUserConfigPath()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expected := filepath.Join(home, ".config", "cupertino", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()

	expected := filepath.Join(customConfig, "cupertino", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigDir_ReturnsParentOfConfigPath(t *testing.T) {
	dir := GetUserConfigDir()
	path := GetUserConfigPath()

	assert.Equal(t, filepath.Dir(path), dir)
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", emptyDir)

	assert.False(t, UserConfigExists())
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	cupertinoDir := filepath.Join(configDir, "cupertino")
	require.NoError(t, os.MkdirAll(cupertinoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cupertinoDir, "config.yaml"), []byte("version: 1"), 0o644))

	assert.True(t, UserConfigExists())
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	configDir := t.TempDir()
	baseDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	cupertinoDir := filepath.Join(configDir, "cupertino")
	require.NoError(t, os.MkdirAll(cupertinoDir, 0o755))
	userConfig := "version: 1\ncrawl:\n  politeness_delay: 2s\n"
	require.NoError(t, os.WriteFile(filepath.Join(cupertinoDir, "config.yaml"), []byte(userConfig), 0o644))

	cfg, err := Load(baseDir)

	require.NoError(t, err)
	assert.Equal(t, "2s", cfg.Crawl.PolitenessDelay)
}

func TestLoad_BaseDirConfigOverridesUserConfig(t *testing.T) {
	configDir := t.TempDir()
	baseDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	cupertinoDir := filepath.Join(configDir, "cupertino")
	require.NoError(t, os.MkdirAll(cupertinoDir, 0o755))
	userConfig := "version: 1\ncrawl:\n  max_pages: 100\n  max_depth: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(cupertinoDir, "config.yaml"), []byte(userConfig), 0o644))

	baseConfig := "version: 1\ncrawl:\n  max_pages: 200\n"
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, ".cupertino.yaml"), []byte(baseConfig), 0o644))

	cfg, err := Load(baseDir)

	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Crawl.MaxPages)
	assert.Equal(t, 2, cfg.Crawl.MaxDepth)
}

func TestLoad_EnvVarOverridesUserAndBaseDirConfig(t *testing.T) {
	configDir := t.TempDir()
	baseDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("CUPERTINO_MAX_PAGES", "999")

	cupertinoDir := filepath.Join(configDir, "cupertino")
	require.NoError(t, os.MkdirAll(cupertinoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cupertinoDir, "config.yaml"), []byte("version: 1\ncrawl:\n  max_pages: 100\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, ".cupertino.yaml"), []byte("version: 1\ncrawl:\n  max_pages: 200\n"), 0o644))

	cfg, err := Load(baseDir)

	require.NoError(t, err)
	assert.Equal(t, 999, cfg.Crawl.MaxPages)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := t.TempDir()
	baseDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	cupertinoDir := filepath.Join(configDir, "cupertino")
	require.NoError(t, os.MkdirAll(cupertinoDir, 0o755))
	invalidConfig := "version: 1\ncrawl:\n  max_pages: [invalid yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(cupertinoDir, "config.yaml"), []byte(invalidConfig), 0o644))

	cfg, err := Load(baseDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}

// =============================================================================
// Validate
// =============================================================================

func TestValidate_RejectsEmptyBaseDir(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.BaseDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeMaxPages(t *testing.T) {
	cfg := NewConfig()
	cfg.Crawl.MaxPages = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroRecycleInterval(t *testing.T) {
	cfg := NewConfig()
	cfg.Crawl.RendererRecycleInterval = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsMaxLimitBelowDefaultLimit(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.DefaultLimit = 50
	cfg.Search.MaxLimit = 10
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

// =============================================================================
// Duration accessors
// =============================================================================

func TestDurationAccessors_ParseConfiguredValues(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500e6, float64(cfg.PolitenessDelay()))
	assert.Equal(t, float64(5*60e9), float64(cfg.RequestTimeout()))
	assert.Equal(t, float64(10*60e9), float64(cfg.TotalTimeout()))
	assert.Equal(t, float64(30e9), float64(cfg.RenderTimeout()))
}

// =============================================================================
// MergeNewDefaults
// =============================================================================

func TestMergeNewDefaults_FillsZeroValuedFields(t *testing.T) {
	cfg := &Config{Version: 1}

	added := cfg.MergeNewDefaults()

	assert.Contains(t, added, "crawl.renderer_recycle_interval")
	assert.Contains(t, added, "crawl.max_retries")
	assert.Contains(t, added, "search.max_limit")
	assert.Equal(t, 50, cfg.Crawl.RendererRecycleInterval)
	assert.Equal(t, 2, cfg.Crawl.MaxRetries)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
}
