package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the docsearch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Documents DocumentsConfig `yaml:"documents"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
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

// DatabaseConfig holds the key-value store connection (cache, rate limiter, embedding cache).
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	MemoryEntries    int      `yaml:"memory_entries"`
}

// DocumentsConfig selects the document store.
type DocumentsConfig struct {
	Driver string       `yaml:"driver"` // memory, redis, mongo, sqlite (default: memory)
	Mongo  MongoConfig  `yaml:"mongo"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI             string `yaml:"uri"`
	Database        string `yaml:"database"`
	Collection      string `yaml:"collection"`
	UsersCollection string `yaml:"users_collection"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RateLimitConfig holds admission control settings.
type RateLimitConfig struct {
	Driver  string `yaml:"driver"`  // redis, mongo, memory (default: database.driver)
	Ceiling int64  `yaml:"ceiling"` // lifetime requests per user
}

// SearchConfig holds orchestrator settings.
type SearchConfig struct {
	CacheTTLSec    int  `yaml:"cache_ttl_sec"`
	EmbedTimeoutMs int  `yaml:"embed_timeout_ms"`
	ScanTimeoutMs  int  `yaml:"scan_timeout_ms"`
	ScanRetries    uint `yaml:"scan_retries"`
}

// CacheTTL returns the result cache TTL.
func (c SearchConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// EmbedTimeout returns the embedding call timeout.
func (c SearchConfig) EmbedTimeout() time.Duration {
	return time.Duration(c.EmbedTimeoutMs) * time.Millisecond
}

// ScanTimeout returns the document scan timeout.
func (c SearchConfig) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutMs) * time.Millisecond
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string        `yaml:"provider"` // openai, local (default: local)
	APIKey              string        `yaml:"api_key"`
	BaseURL             string        `yaml:"base_url"`
	Model               string        `yaml:"model"`
	Dimensions          int           `yaml:"dimensions"`
	DocumentInstruction string        `yaml:"document_instruction"`
	QueryInstruction    string        `yaml:"query_instruction"`
	RequestsPerSecond   float64       `yaml:"requests_per_second"` // 0 = unthrottled
	Burst               int           `yaml:"burst"`
	Cache               bool          `yaml:"cache"`
	Breaker             BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the embedding provider.
type BreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	MaxRequests      uint32 `yaml:"max_requests"`
	IntervalSec      int    `yaml:"interval_sec"`
	OpenTimeoutSec   int    `yaml:"open_timeout_sec"`
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// CrawlerConfig holds news ingestion settings.
type CrawlerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SourceURL     string `yaml:"source_url"`
	MaxArticles   int    `yaml:"max_articles"`
	FetchArticles bool   `yaml:"fetch_articles"`
	IntervalMin   int    `yaml:"interval_min"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	UserAgent     string `yaml:"user_agent"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, expanding env variables and applying defaults.
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
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MemoryEntries <= 0 {
		c.Database.MemoryEntries = 10000
	}
	if c.Documents.Driver == "" {
		c.Documents.Driver = "memory"
	}
	if c.Documents.Mongo.Database == "" {
		c.Documents.Mongo.Database = "document_retrieval_system"
	}
	if c.Documents.Mongo.Collection == "" {
		c.Documents.Mongo.Collection = "documents"
	}
	if c.Documents.Mongo.UsersCollection == "" {
		c.Documents.Mongo.UsersCollection = "users"
	}
	if c.Documents.SQLite.Path == "" {
		c.Documents.SQLite.Path = "docsearch.db"
	}
	if c.RateLimit.Driver == "" {
		c.RateLimit.Driver = c.Database.Driver
		if c.RateLimit.Driver == "valkey" {
			c.RateLimit.Driver = "redis"
		}
	}
	if c.RateLimit.Ceiling <= 0 {
		c.RateLimit.Ceiling = 5
	}
	if c.Search.CacheTTLSec <= 0 {
		c.Search.CacheTTLSec = 3600
	}
	if c.Search.EmbedTimeoutMs <= 0 {
		c.Search.EmbedTimeoutMs = 10000
	}
	if c.Search.ScanTimeoutMs <= 0 {
		c.Search.ScanTimeoutMs = 5000
	}
	if c.Search.ScanRetries == 0 {
		c.Search.ScanRetries = 3
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}
	if c.Embedding.Dimensions <= 0 && c.Embedding.Provider == "local" {
		c.Embedding.Dimensions = 256
	}
	if c.Embedding.Burst <= 0 {
		c.Embedding.Burst = 1
	}
	if c.Embedding.Breaker.MaxRequests == 0 {
		c.Embedding.Breaker.MaxRequests = 1
	}
	if c.Embedding.Breaker.IntervalSec <= 0 {
		c.Embedding.Breaker.IntervalSec = 60
	}
	if c.Embedding.Breaker.OpenTimeoutSec <= 0 {
		c.Embedding.Breaker.OpenTimeoutSec = 30
	}
	if c.Embedding.Breaker.FailureThreshold == 0 {
		c.Embedding.Breaker.FailureThreshold = 5
	}
	if c.Crawler.SourceURL == "" {
		c.Crawler.SourceURL = "https://news.ycombinator.com/"
	}
	if c.Crawler.MaxArticles <= 0 {
		c.Crawler.MaxArticles = 10
	}
	if c.Crawler.IntervalMin <= 0 {
		c.Crawler.IntervalMin = 60
	}
	if c.Crawler.TimeoutSec <= 0 {
		c.Crawler.TimeoutSec = 15
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "docsearch"
	}
	if c.Telemetry.SampleRatio <= 0 {
		c.Telemetry.SampleRatio = 0.1
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "docsearch:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, memory, got %q", c.Database.Driver)
	}
	switch c.Documents.Driver {
	case "memory", "sqlite":
	case "redis":
		if c.Database.Driver == "memory" {
			return fmt.Errorf("documents.driver \"redis\" requires a redis or valkey database")
		}
	case "mongo":
		if c.Documents.Mongo.URI == "" {
			return fmt.Errorf("documents.mongo.uri is required for driver \"mongo\"")
		}
	default:
		return fmt.Errorf("documents.driver must be one of memory, redis, mongo, sqlite, got %q", c.Documents.Driver)
	}
	switch c.RateLimit.Driver {
	case "memory":
	case "redis":
		if c.Database.Driver == "memory" {
			return fmt.Errorf("rate_limit.driver \"redis\" requires a redis or valkey database")
		}
	case "mongo":
		if c.Documents.Mongo.URI == "" {
			return fmt.Errorf("rate_limit.driver \"mongo\" requires documents.mongo.uri")
		}
	default:
		return fmt.Errorf("rate_limit.driver must be one of redis, mongo, memory, got %q", c.RateLimit.Driver)
	}
	switch c.Embedding.Provider {
	case "local":
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions must be positive for the local provider")
		}
	case "openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider \"openai\"")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"local\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}
	if c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within (0, 1], got %g", c.Telemetry.SampleRatio)
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
