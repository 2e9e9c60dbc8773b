package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete cupertino configuration.
type Config struct {
	Version int            `yaml:"version" json:"version"`
	Paths   PathsConfig    `yaml:"paths" json:"paths"`
	Crawl   CrawlConfig    `yaml:"crawl" json:"crawl"`
	HTTP    HTTPConfig     `yaml:"http" json:"http"`
	Server  ServerConfig   `yaml:"server" json:"server"`
	Search  SearchConfig   `yaml:"search" json:"search"`
	Catalog CatalogConfig  `yaml:"catalog" json:"catalog"`
}

// PathsConfig configures where crawled content and indexes live on disk.
type PathsConfig struct {
	// BaseDir is the root of the on-disk layout: docs/, swift-evolution/,
	// archive/, hig/, packages/, sample-code/, search.db, samples.db,
	// metadata.json. Defaults to ~/.cupertino.
	BaseDir string `yaml:"base_dir" json:"base_dir"`
}

// CrawlConfig configures the crawl engine's pacing, depth, and retry policy.
type CrawlConfig struct {
	// PolitenessDelay is the pause between requests, parsed with
	// time.ParseDuration (e.g. "500ms").
	PolitenessDelay string `yaml:"politeness_delay" json:"politeness_delay"`

	// MaxPages caps the number of pages fetched in one invocation. 0 means
	// unlimited.
	MaxPages int `yaml:"max_pages" json:"max_pages"`

	// MaxDepth caps link-following depth from a seed URL. 0 means unlimited.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// RendererRecycleInterval is how many successful fetches elapse before
	// the renderer is proactively destroyed and recreated.
	RendererRecycleInterval int `yaml:"renderer_recycle_interval" json:"renderer_recycle_interval"`

	// MaxRetries is the number of additional attempts after a transient
	// fetch failure, each preceded by a renderer recycle.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// HTTPConfig configures outbound HTTP and render timeouts.
type HTTPConfig struct {
	// RequestTimeout bounds a single outbound HTTP request.
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`

	// TotalTimeout bounds the whole of a bulk download (e.g. a sample ZIP).
	TotalTimeout string `yaml:"total_timeout" json:"total_timeout"`

	// RenderTimeout bounds a single page render, including the DOM-quiet
	// wait.
	RenderTimeout string `yaml:"render_timeout" json:"render_timeout"`
}

// ServerConfig configures the MCP server process.
type ServerConfig struct {
	// Transport is the MCP wire transport. Only "stdio" is supported.
	Transport string `yaml:"transport" json:"transport"`

	// LogLevel is the slog level used in server mode ("debug", "info",
	// "warn", "error").
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// SearchConfig configures default search behavior shared by the CLI and the
// MCP search tools.
type SearchConfig struct {
	// DefaultLimit is the result count applied when a caller doesn't
	// specify --limit.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// MaxLimit caps the result count a caller may request.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`

	// IncludeArchiveByDefault controls whether rows whose source is
	// apple-archive are included absent --include-archive.
	IncludeArchiveByDefault bool `yaml:"include_archive_by_default" json:"include_archive_by_default"`
}

// CatalogConfig configures the static priority-package catalog and its
// user overrides.
type CatalogConfig struct {
	// OverridePath, if set, points at a YAML file merged over the built-in
	// priority-package and archive-guide tables.
	OverridePath string `yaml:"override_path" json:"override_path"`

	// GitHubToken extends rate limits for package metadata fetches. It is
	// never read from a config file or written to one; only
	// applyEnvOverrides sets it, from CUPERTINO_GITHUB_TOKEN.
	GitHubToken string `yaml:"-" json:"-"`
}

// NewConfig returns a Config populated with cupertino's defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			BaseDir: defaultBaseDir(),
		},
		Crawl: CrawlConfig{
			PolitenessDelay:         "500ms",
			MaxPages:                0,
			MaxDepth:                0,
			RendererRecycleInterval: 50,
			MaxRetries:              2,
		},
		HTTP: HTTPConfig{
			RequestTimeout: "5m",
			TotalTimeout:   "10m",
			RenderTimeout:  "30s",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Search: SearchConfig{
			DefaultLimit:            20,
			MaxLimit:                100,
			IncludeArchiveByDefault: false,
		},
		Catalog: CatalogConfig{},
	}
}

// defaultBaseDir returns ~/.cupertino, falling back to a temp directory if
// the home directory can't be resolved.
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cupertino")
	}
	return filepath.Join(home, ".cupertino")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory spec:
//   - $XDG_CONFIG_HOME/cupertino/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/cupertino/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cupertino", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "cupertino", "config.yaml")
	}
	return filepath.Join(home, ".config", "cupertino", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns a nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads configuration for the base directory at dir, applying layers
// in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/cupertino/config.yaml)
//  3. Base-directory config (.cupertino.yaml in dir)
//  4. Environment variables (CUPERTINO_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .cupertino.yaml or
// .cupertino.yml in dir.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".cupertino.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".cupertino.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.BaseDir != "" {
		c.Paths.BaseDir = other.Paths.BaseDir
	}

	if other.Crawl.PolitenessDelay != "" {
		c.Crawl.PolitenessDelay = other.Crawl.PolitenessDelay
	}
	if other.Crawl.MaxPages != 0 {
		c.Crawl.MaxPages = other.Crawl.MaxPages
	}
	if other.Crawl.MaxDepth != 0 {
		c.Crawl.MaxDepth = other.Crawl.MaxDepth
	}
	if other.Crawl.RendererRecycleInterval != 0 {
		c.Crawl.RendererRecycleInterval = other.Crawl.RendererRecycleInterval
	}
	if other.Crawl.MaxRetries != 0 {
		c.Crawl.MaxRetries = other.Crawl.MaxRetries
	}

	if other.HTTP.RequestTimeout != "" {
		c.HTTP.RequestTimeout = other.HTTP.RequestTimeout
	}
	if other.HTTP.TotalTimeout != "" {
		c.HTTP.TotalTimeout = other.HTTP.TotalTimeout
	}
	if other.HTTP.RenderTimeout != "" {
		c.HTTP.RenderTimeout = other.HTTP.RenderTimeout
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.IncludeArchiveByDefault {
		c.Search.IncludeArchiveByDefault = other.Search.IncludeArchiveByDefault
	}

	if other.Catalog.OverridePath != "" {
		c.Catalog.OverridePath = other.Catalog.OverridePath
	}
}

// applyEnvOverrides applies CUPERTINO_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CUPERTINO_BASE_DIR"); v != "" {
		c.Paths.BaseDir = v
	}
	if v := os.Getenv("CUPERTINO_POLITENESS_DELAY"); v != "" {
		c.Crawl.PolitenessDelay = v
	}
	if v := os.Getenv("CUPERTINO_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Crawl.MaxPages = n
		}
	}
	if v := os.Getenv("CUPERTINO_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Crawl.MaxDepth = n
		}
	}
	if v := os.Getenv("CUPERTINO_RENDERER_RECYCLE_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Crawl.RendererRecycleInterval = n
		}
	}
	if v := os.Getenv("CUPERTINO_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Crawl.MaxRetries = n
		}
	}

	if v := os.Getenv("CUPERTINO_REQUEST_TIMEOUT"); v != "" {
		c.HTTP.RequestTimeout = v
	}
	if v := os.Getenv("CUPERTINO_TOTAL_TIMEOUT"); v != "" {
		c.HTTP.TotalTimeout = v
	}
	if v := os.Getenv("CUPERTINO_RENDER_TIMEOUT"); v != "" {
		c.HTTP.RenderTimeout = v
	}

	if v := os.Getenv("CUPERTINO_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("CUPERTINO_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}

	if v := os.Getenv("CUPERTINO_SEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}

	if v := os.Getenv("CUPERTINO_CATALOG_OVERRIDE"); v != "" {
		c.Catalog.OverridePath = v
	}

	// Absence is non-fatal: package metadata fetches fall back to the
	// code forge's unauthenticated rate limit.
	if v := os.Getenv("CUPERTINO_GITHUB_TOKEN"); v != "" {
		c.Catalog.GitHubToken = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Paths.BaseDir == "" {
		return fmt.Errorf("paths.base_dir must not be empty")
	}

	if _, err := time.ParseDuration(c.Crawl.PolitenessDelay); err != nil {
		return fmt.Errorf("crawl.politeness_delay is invalid: %w", err)
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be non-negative, got %d", c.Crawl.MaxPages)
	}
	if c.Crawl.MaxDepth < 0 {
		return fmt.Errorf("crawl.max_depth must be non-negative, got %d", c.Crawl.MaxDepth)
	}
	if c.Crawl.RendererRecycleInterval <= 0 {
		return fmt.Errorf("crawl.renderer_recycle_interval must be positive, got %d", c.Crawl.RendererRecycleInterval)
	}
	if c.Crawl.MaxRetries < 0 {
		return fmt.Errorf("crawl.max_retries must be non-negative, got %d", c.Crawl.MaxRetries)
	}

	for name, v := range map[string]string{
		"http.request_timeout": c.HTTP.RequestTimeout,
		"http.total_timeout":   c.HTTP.TotalTimeout,
		"http.render_timeout":  c.HTTP.RenderTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s is invalid: %w", name, err)
		}
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be >= search.default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file. GitHubToken is never
// serialized: it carries yaml:"-".
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file. Returns a nil config
// and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults fills in zero-valued fields added to Config after a
// user's config.yaml was written, so upgrades don't require hand-editing.
// Returns the dotted field names that were filled in.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Crawl.RendererRecycleInterval == 0 {
		c.Crawl.RendererRecycleInterval = defaults.Crawl.RendererRecycleInterval
		added = append(added, "crawl.renderer_recycle_interval")
	}
	if c.Crawl.MaxRetries == 0 {
		c.Crawl.MaxRetries = defaults.Crawl.MaxRetries
		added = append(added, "crawl.max_retries")
	}
	if c.Search.MaxLimit == 0 {
		c.Search.MaxLimit = defaults.Search.MaxLimit
		added = append(added, "search.max_limit")
	}

	return added
}

// PolitenessDelay parses Crawl.PolitenessDelay. Call only after Validate.
func (c *Config) PolitenessDelay() time.Duration {
	d, _ := time.ParseDuration(c.Crawl.PolitenessDelay)
	return d
}

// RequestTimeout parses HTTP.RequestTimeout. Call only after Validate.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.RequestTimeout)
	return d
}

// TotalTimeout parses HTTP.TotalTimeout. Call only after Validate.
func (c *Config) TotalTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.TotalTimeout)
	return d
}

// RenderTimeout parses HTTP.RenderTimeout. Call only after Validate.
func (c *Config) RenderTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.RenderTimeout)
	return d
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
