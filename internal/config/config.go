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

	"github.com/kailas-cloud/cmsearch/internal/db/postgres"
	"github.com/kailas-cloud/cmsearch/internal/domain/index"
	chiTransport "github.com/kailas-cloud/cmsearch/internal/transport/chi"
)

// Engine drivers.
const (
	DriverRedis = "redis"
	DriverBleve = "bleve"
)

// Config holds the cmsearch API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Engine      EngineConfig      `yaml:"engine"`
	Permissions PermissionsConfig `yaml:"permissions"`
	Auth        AuthConfig        `yaml:"auth"`
	Search      SearchConfig      `yaml:"search"`
	Indexes     []IndexConfig     `yaml:"indexes"`
	Events      EventsConfig      `yaml:"events"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Only trusted keys may assert
// the end user through the caller headers.
type AuthConfig struct {
	APIKeys     []string `yaml:"api_keys"`
	TrustedKeys []string `yaml:"trusted_keys"`
}

// Keys merges both key lists for the auth middleware.
func (c AuthConfig) Keys() []chiTransport.APIKey {
	keys := make([]chiTransport.APIKey, 0, len(c.APIKeys)+len(c.TrustedKeys))
	for _, k := range c.APIKeys {
		keys = append(keys, chiTransport.APIKey{Key: k})
	}
	for _, k := range c.TrustedKeys {
		keys = append(keys, chiTransport.APIKey{Key: k, Trusted: true})
	}
	return keys
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig holds search engine connection settings.
type EngineConfig struct {
	Driver           string   `yaml:"driver"` // redis, bleve (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Path             string   `yaml:"path"` // bleve only; empty keeps indexes in memory
}

// PermissionsConfig holds the CMS permission store connection.
type PermissionsConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	SSLMode            string `yaml:"sslmode"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	Migrate            bool   `yaml:"migrate"`
}

// Postgres converts c to a connection config.
func (c PermissionsConfig) Postgres() postgres.Config {
	return postgres.Config{
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.Database,
		User:            c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: time.Duration(c.ConnMaxLifetimeSec) * time.Second,
	}
}

// SearchConfig holds settings shared by all indexes.
type SearchConfig struct {
	BackgroundSlots   int `yaml:"background_slots"` // 0 disables the background lane
	SecretCacheSize   int `yaml:"secret_cache_size"`
	SecretCacheTTLSec int `yaml:"secret_cache_ttl_sec"`
}

// IndexConfig holds one search index.
type IndexConfig struct {
	Name             string   `yaml:"name"`
	EngineIndex      string   `yaml:"engine_index"`
	Visibility       string   `yaml:"visibility"` // online, offline
	OfflineRole      string   `yaml:"offline_role"`
	RowCap           int      `yaml:"row_cap"`
	MaxRowsPerPage   int      `yaml:"max_rows_per_page"`
	MaxRows          int      `yaml:"max_rows"`
	Disabled         bool     `yaml:"disabled"`
	AllowedFields    []string `yaml:"allowed_fields"`
	DebugSecretPath  string   `yaml:"debug_secret_path"`
	CheckPermissions *bool    `yaml:"check_permissions"`
	PostProcessor    string   `yaml:"post_processor"`
	LinkPrefix       string   `yaml:"link_prefix"`
	SiteRoots        []string `yaml:"site_roots"`
}

// Settings validates c into index settings.
func (c IndexConfig) Settings() (index.Settings, error) {
	s, err := index.New(index.Config{
		Name:             c.Name,
		EngineIndex:      c.EngineIndex,
		Visibility:       index.Visibility(c.Visibility),
		OfflineRole:      c.OfflineRole,
		RowCap:           c.RowCap,
		MaxRowsPerPage:   c.MaxRowsPerPage,
		MaxRows:          c.MaxRows,
		Disabled:         c.Disabled,
		AllowedFields:    c.AllowedFields,
		DebugSecretPath:  c.DebugSecretPath,
		CheckPermissions: c.CheckPermissions,
		PostProcessor:    c.PostProcessor,
		LinkPrefix:       c.LinkPrefix,
		SiteRoots:        c.SiteRoots,
	})
	if err != nil {
		return index.Settings{}, fmt.Errorf("build index settings: %w", err)
	}
	return s, nil
}

// EventsConfig holds search analytics publishing settings.
type EventsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	BufferSize int      `yaml:"buffer_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.Driver == "" {
		c.Engine.Driver = DriverRedis
	}
	if c.Engine.ReadinessTimeout <= 0 {
		c.Engine.ReadinessTimeout = 10
	}
	if c.Engine.KeyPrefix == "" && c.Engine.Driver == DriverRedis {
		c.Engine.KeyPrefix = "cms:"
	}
	if c.Permissions.Port <= 0 {
		c.Permissions.Port = 5432
	}
	if c.Permissions.SSLMode == "" {
		c.Permissions.SSLMode = "disable"
	}
	if c.Permissions.MaxOpenConns <= 0 {
		c.Permissions.MaxOpenConns = 20
	}
	if c.Permissions.MaxIdleConns <= 0 {
		c.Permissions.MaxIdleConns = 5
	}
	if c.Permissions.ConnMaxLifetimeSec <= 0 {
		c.Permissions.ConnMaxLifetimeSec = 300
	}
	if c.Search.SecretCacheSize <= 0 {
		c.Search.SecretCacheSize = 256
	}
	if c.Search.SecretCacheTTLSec <= 0 {
		c.Search.SecretCacheTTLSec = 60
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "cmsearch.search-events"
	}
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = 10000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Engine.Driver {
	case DriverRedis:
		if len(c.Engine.Addrs) == 0 {
			return fmt.Errorf("engine.addrs is required")
		}
	case DriverBleve:
	default:
		return fmt.Errorf("engine.driver must be %q or %q, got %q", DriverRedis, DriverBleve, c.Engine.Driver)
	}
	if c.Permissions.Enabled && (c.Permissions.Host == "" || c.Permissions.Database == "") {
		return fmt.Errorf("permissions.host and permissions.database are required")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events are enabled")
	}
	if len(c.Indexes) == 0 {
		return fmt.Errorf("at least one index is required")
	}
	seen := make(map[string]struct{}, len(c.Indexes))
	for i, ic := range c.Indexes {
		if _, err := ic.Settings(); err != nil {
			return fmt.Errorf("indexes[%d]: %w", i, err)
		}
		if _, dup := seen[ic.Name]; dup {
			return fmt.Errorf("indexes[%d]: duplicate index name %q", i, ic.Name)
		}
		seen[ic.Name] = struct{}{}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
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
