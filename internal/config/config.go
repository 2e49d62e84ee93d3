package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverValkey = "valkey"
	DriverRedis  = "redis"
)

// Config holds the tripnote configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // memory, file, sqlite, valkey, redis (default: file)
	Path             string   `yaml:"path"`   // directory for file, database file for sqlite
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds index refresh and fuzzy matcher settings.
type IndexConfig struct {
	RefreshIntervalSec int     `yaml:"refresh_interval_sec"`
	MatchThreshold     float64 `yaml:"match_threshold"`
	MinMatchLength     int     `yaml:"min_match_length"`
	Watch              bool    `yaml:"watch"` // rebuild on file changes (file driver only)
	WatchDebounceMs    int     `yaml:"watch_debounce_ms"`
}

// SearchConfig holds caller-facing search defaults.
type SearchConfig struct {
	DefaultLimit     int     `yaml:"default_limit"`
	MaxLimit         int     `yaml:"max_limit"`
	DefaultThreshold float64 `yaml:"default_threshold"`
	CacheSize        int     `yaml:"cache_size"` // negative disables the result cache
}

// EnrichmentConfig holds the optional remote enrichment settings.
type EnrichmentConfig struct {
	Enabled           bool   `yaml:"enabled"`
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	TimeoutMs         int    `yaml:"timeout_ms"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	CacheSize         int    `yaml:"cache_size"`
	CacheTTLSec       int    `yaml:"cache_ttl_sec"`
}

// RefreshInterval returns the index freshness window.
func (c IndexConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// Timeout returns the per-call enrichment deadline.
func (c EnrichmentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverFile
	}
	if c.Store.Path == "" {
		switch c.Store.Driver {
		case DriverFile:
			c.Store.Path = "data"
		case DriverSQLite:
			c.Store.Path = "tripnote.db"
		}
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Index.RefreshIntervalSec <= 0 {
		c.Index.RefreshIntervalSec = 300
	}
	if c.Index.MatchThreshold <= 0 {
		c.Index.MatchThreshold = 0.4
	}
	if c.Index.MinMatchLength <= 0 {
		c.Index.MinMatchLength = 2
	}
	if c.Index.WatchDebounceMs <= 0 {
		c.Index.WatchDebounceMs = 500
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.DefaultThreshold <= 0 {
		c.Search.DefaultThreshold = 0.3
	}
	if c.Search.CacheSize == 0 {
		c.Search.CacheSize = 256
	}
	if c.Enrichment.Model == "" {
		c.Enrichment.Model = "gpt-4o-mini"
	}
	if c.Enrichment.TimeoutMs <= 0 {
		c.Enrichment.TimeoutMs = 5000
	}
	if c.Enrichment.RequestsPerMinute <= 0 {
		c.Enrichment.RequestsPerMinute = 30
	}
	if c.Enrichment.CacheSize <= 0 {
		c.Enrichment.CacheSize = 512
	}
	if c.Enrichment.CacheTTLSec <= 0 {
		c.Enrichment.CacheTTLSec = 86400
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", c.Store.Driver)
		}
	case DriverValkey, DriverRedis:
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, file, sqlite, valkey, redis, got %q", c.Store.Driver)
	}
	if c.Index.Watch && c.Store.Driver != DriverFile {
		return fmt.Errorf("index.watch requires store.driver %q, got %q", DriverFile, c.Store.Driver)
	}
	if c.Index.MatchThreshold > 1 {
		return fmt.Errorf("index.match_threshold must be in (0, 1], got %v", c.Index.MatchThreshold)
	}
	if c.Search.DefaultThreshold > 1 {
		return fmt.Errorf("search.default_threshold must be in (0, 1], got %v", c.Search.DefaultThreshold)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Enrichment.Enabled && c.Enrichment.APIKey == "" {
		return fmt.Errorf("enrichment.api_key is required when enrichment is enabled")
	}
	return nil
}

// ConfigEnvVar names an explicit config file. It wins over every search location.
const ConfigEnvVar = "TRIPNOTE_CONFIG"

// configCandidates lists where <env>.yaml is looked up, in order: the
// working directory, the user config dir, then the module source tree.
func configCandidates(env string) []string {
	name := env + ".yaml"
	out := []string{filepath.Join("config", name)}
	if dir, err := os.UserConfigDir(); err == nil {
		out = append(out, filepath.Join(dir, "tripnote", name))
	}
	if _, src, _, ok := runtime.Caller(0); ok {
		root := filepath.Dir(filepath.Dir(filepath.Dir(src))) // internal/config -> module root
		out = append(out, filepath.Join(root, "config", name))
	}
	return out
}

func findConfigPath(env string) string {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return p
	}
	candidates := configCandidates(env)
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return candidates[0]
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
