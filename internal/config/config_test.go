package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, 60, cfg.HTTP.WriteTimeoutSec)

	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.True(t, cfg.Cache.IsEnabled())
	assert.False(t, cfg.Cache.Shared())
	assert.Equal(t, 3600, cfg.Cache.TTLSec)
	assert.Equal(t, 1000, cfg.Cache.MaxItems)
	assert.Equal(t, 600, cfg.Cache.SweepIntervalSec)
	assert.Equal(t, "ctxsearch:", cfg.Cache.KeyPrefix)

	assert.Equal(t, SourceContentstack, cfg.Source.Driver)
	assert.Equal(t, "development", cfg.Source.Environment)
	assert.Equal(t, "us", cfg.Source.Region)

	assert.Equal(t, 10, cfg.Search.Limit)
	assert.InDelta(t, 0.3, cfg.Search.RelevanceThreshold, 1e-9)
	assert.True(t, cfg.Search.IsSemantic())
	assert.Equal(t, 2, cfg.Search.FetchMultiplier)
	assert.Equal(t, "en-us", cfg.Search.DefaultLocale)
	assert.Equal(t, 2000, cfg.Search.MaxContextLength)

	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)

	require.NoError(t, cfg.Validate(), "defaults must validate")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis without addrs", func(c *Config) { c.Cache.Backend = CacheRedis }, "database.addrs"},
		{"driver", func(c *Config) { c.Source.Driver = "wordpress" }, "source.driver"},
		{"region", func(c *Config) { c.Source.Region = "ap" }, "source.region"},
		{"static without fixture", func(c *Config) { c.Source.Driver = SourceStatic }, "source.fixture_path"},
		{"threshold", func(c *Config) { c.Search.RelevanceThreshold = 1.5 }, "relevance_threshold"},
		{"limit", func(c *Config) { c.Search.Limit = 500 }, "search.limit"},
		{"context length", func(c *Config) { c.Search.MaxContextLength = 100 }, "max_context_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_SharedCache(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = CacheValkey
	cfg.Database.Addrs = []string{"localhost:6379"}

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Cache.Shared(), "valkey backend must be shared")
}

func TestParse(t *testing.T) {
	t.Setenv("CTXSEARCH_TEST_TOKEN", "secret")

	cfg, err := Parse([]byte(`
http:
  port: ${CTXSEARCH_TEST_PORT:-9090}
cache:
  enabled: false
source:
  driver: static
  fixture_path: fixtures/entries.yaml
  delivery_token: ${CTXSEARCH_TEST_TOKEN}
search:
  semantic: false
  relevance_threshold: 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port, "default port from expansion")
	assert.Equal(t, "secret", cfg.Source.DeliveryToken)
	assert.False(t, cfg.Cache.IsEnabled())
	assert.False(t, cfg.Search.IsSemantic())
	assert.InDelta(t, 0.5, cfg.Search.RelevanceThreshold, 1e-9)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("http: ["))
	require.Error(t, err)

	_, err = Parse([]byte("http:\n  port: 0\n"))
	require.ErrorContains(t, err, "invalid config")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CTXSEARCH_SET", "value")

	got := string(expandEnvVars([]byte("a=${CTXSEARCH_SET} b=${CTXSEARCH_UNSET:-fallback} c=${CTXSEARCH_UNSET}")))
	assert.Equal(t, "a=value b=fallback c=", got)
}

func TestLoad_Local(t *testing.T) {
	cfg, err := Load("local")
	require.NoError(t, err)
	assert.Positive(t, cfg.HTTP.Port)
}

func TestMustLoad(t *testing.T) {
	var cfg Config
	require.NotPanics(t, func() { cfg = MustLoad("local") })
	assert.Positive(t, cfg.HTTP.Port)

	assert.Panics(t, func() { MustLoad("no-such-env") })
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	assert.Equal(t, "local", GetEnv())

	t.Setenv("ENV", "prod")
	assert.Equal(t, "prod", GetEnv())
}
