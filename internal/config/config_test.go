package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Database.Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Documents.Driver != "memory" {
		t.Errorf("expected Documents.Driver=memory, got %q", cfg.Documents.Driver)
	}
	if cfg.RateLimit.Driver != "redis" {
		t.Errorf("expected RateLimit.Driver=redis, got %q", cfg.RateLimit.Driver)
	}
	if cfg.RateLimit.Ceiling != 5 {
		t.Errorf("expected RateLimit.Ceiling=5, got %d", cfg.RateLimit.Ceiling)
	}
	if cfg.Search.CacheTTL() != time.Hour {
		t.Errorf("expected CacheTTL=1h, got %s", cfg.Search.CacheTTL())
	}
	if cfg.Search.ScanRetries != 3 {
		t.Errorf("expected ScanRetries=3, got %d", cfg.Search.ScanRetries)
	}
	if cfg.Embedding.Provider != "local" || cfg.Embedding.Dimensions != 256 {
		t.Errorf("expected local provider with 256 dims, got %q/%d", cfg.Embedding.Provider, cfg.Embedding.Dimensions)
	}
	if cfg.Crawler.MaxArticles != 10 {
		t.Errorf("expected Crawler.MaxArticles=10, got %d", cfg.Crawler.MaxArticles)
	}
	if cfg.Storage.KeyPrefix != "docsearch:" {
		t.Errorf("expected KeyPrefix=docsearch:, got %q", cfg.Storage.KeyPrefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults_ValkeyLimiterUsesRedis(t *testing.T) {
	cfg := Config{Database: DatabaseConfig{Driver: "valkey"}}
	cfg.ApplyDefaults()
	if cfg.RateLimit.Driver != "redis" {
		t.Errorf("expected RateLimit.Driver=redis, got %q", cfg.RateLimit.Driver)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown db driver", func(c *Config) { c.Database.Driver = "etcd" }, "database.driver"},
		{"unknown docs driver", func(c *Config) { c.Documents.Driver = "pg" }, "documents.driver"},
		{"mongo without uri", func(c *Config) { c.Documents.Driver = "mongo" }, "documents.mongo.uri"},
		{"redis docs on memory db", func(c *Config) {
			c.Database.Driver = "memory"
			c.Documents.Driver = "redis"
		}, "requires a redis"},
		{"mongo limiter without uri", func(c *Config) { c.RateLimit.Driver = "mongo" }, "rate_limit.driver"},
		{"openai without model", func(c *Config) { c.Embedding.Provider = "openai" }, "embedding.model"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert" }, "embedding.provider"},
		{"negative rps", func(c *Config) { c.Embedding.RequestsPerSecond = -1 }, "requests_per_second"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestValidate_MemoryDatabase(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
	}
	cfg.ApplyDefaults()
	if cfg.RateLimit.Driver != "memory" {
		t.Errorf("expected RateLimit.Driver=memory, got %q", cfg.RateLimit.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("DOCSEARCH_TEST_PORT", "9090")

	data := []byte(`
http:
  port: ${DOCSEARCH_TEST_PORT}
database:
  driver: memory
documents:
  driver: ${DOCSEARCH_TEST_UNSET:-sqlite}
rate_limit:
  ceiling: 7
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected HTTP.Port=9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Documents.Driver != "sqlite" {
		t.Errorf("expected Documents.Driver=sqlite, got %q", cfg.Documents.Driver)
	}
	if cfg.RateLimit.Ceiling != 7 {
		t.Errorf("expected RateLimit.Ceiling=7, got %d", cfg.RateLimit.Ceiling)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCSEARCH_A", "alpha")

	got := string(expandEnvVars([]byte("${DOCSEARCH_A} ${DOCSEARCH_MISSING} ${DOCSEARCH_MISSING:-beta}")))
	want := "alpha  beta"
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}
