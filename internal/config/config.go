package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ctxsearch service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Search   SearchConfig   `yaml:"search"`
	LLM      LLMConfig      `yaml:"llm"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheValkey = "valkey"
)

// CacheConfig holds search cache settings.
type CacheConfig struct {
	Enabled          *bool  `yaml:"enabled"` // default true
	Backend          string `yaml:"backend"` // memory, redis, valkey (default: memory)
	TTLSec           int    `yaml:"ttl_sec"`
	MaxItems         int    `yaml:"max_items"`
	SweepIntervalSec int    `yaml:"sweep_interval_sec"`
	KeyPrefix        string `yaml:"key_prefix"`
}

// IsEnabled reports whether search results are cached.
func (c CacheConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// Shared reports whether the cache lives in Redis/Valkey.
func (c CacheConfig) Shared() bool { return c.Backend == CacheRedis || c.Backend == CacheValkey }

// DatabaseConfig holds Redis/Valkey connection settings for the shared cache.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Standalone       bool     `yaml:"standalone"` // skip cluster discovery
}

// Content source drivers.
const (
	SourceContentstack = "contentstack"
	SourceStatic       = "static"
)

// SourceConfig holds content source settings.
type SourceConfig struct {
	Driver        string `yaml:"driver"` // contentstack, static (default: contentstack)
	APIKey        string `yaml:"api_key"`
	DeliveryToken string `yaml:"delivery_token"`
	Environment   string `yaml:"environment"`
	Region        string `yaml:"region"`   // us, eu
	BaseURL       string `yaml:"base_url"` // overrides region
	TimeoutSec    int    `yaml:"timeout_sec"`
	Concurrency   int    `yaml:"concurrency"`
	FixturePath   string `yaml:"fixture_path"`
}

// SearchConfig holds matching defaults.
type SearchConfig struct {
	Limit              int     `yaml:"limit"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	Semantic           *bool   `yaml:"semantic"` // false = fuzzy matching
	FetchMultiplier    int     `yaml:"fetch_multiplier"`
	Workers            int     `yaml:"workers"`
	DefaultLocale      string  `yaml:"default_locale"`
	MaxContextLength   int     `yaml:"max_context_length"`
}

// IsSemantic reports whether the weighted scorer is used (default true).
func (c SearchConfig) IsSemantic() bool { return c.Semantic == nil || *c.Semantic }

// LLMConfig holds chat completion provider settings.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
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

// Parse decodes YAML bytes, expanding ${VAR} references, then applies defaults and validates.
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
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.MaxItems <= 0 {
		c.Cache.MaxItems = 1000
	}
	if c.Cache.SweepIntervalSec <= 0 {
		c.Cache.SweepIntervalSec = 600
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "ctxsearch:"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Source.Driver == "" {
		c.Source.Driver = SourceContentstack
	}
	if c.Source.Environment == "" {
		c.Source.Environment = "development"
	}
	if c.Source.Region == "" {
		c.Source.Region = "us"
	}
	if c.Source.TimeoutSec <= 0 {
		c.Source.TimeoutSec = 10
	}
	if c.Source.Concurrency <= 0 {
		c.Source.Concurrency = 4
	}

	if c.Search.Limit <= 0 {
		c.Search.Limit = 10
	}
	if c.Search.RelevanceThreshold == 0 {
		c.Search.RelevanceThreshold = 0.3
	}
	if c.Search.FetchMultiplier <= 0 {
		c.Search.FetchMultiplier = 2
	}
	if c.Search.Workers <= 0 {
		c.Search.Workers = 8
	}
	if c.Search.DefaultLocale == "" {
		c.Search.DefaultLocale = "en-us"
	}
	if c.Search.MaxContextLength <= 0 {
		c.Search.MaxContextLength = 2000
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "llama-3.1-8b-instant"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2048
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis, CacheValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for cache backend %q", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("cache.backend must be \"memory\", \"redis\" or \"valkey\", got %q", c.Cache.Backend)
	}

	switch c.Source.Driver {
	case SourceContentstack:
		switch strings.ToLower(c.Source.Region) {
		case "us", "eu":
		default:
			return fmt.Errorf("source.region must be \"us\" or \"eu\", got %q", c.Source.Region)
		}
	case SourceStatic:
		if c.Source.FixturePath == "" {
			return fmt.Errorf("source.fixture_path is required for the static driver")
		}
	default:
		return fmt.Errorf("source.driver must be \"contentstack\" or \"static\", got %q", c.Source.Driver)
	}

	if c.Search.RelevanceThreshold < 0 || c.Search.RelevanceThreshold > 1 {
		return fmt.Errorf("search.relevance_threshold must be between 0 and 1, got %v", c.Search.RelevanceThreshold)
	}
	if c.Search.Limit > 100 {
		return fmt.Errorf("search.limit must be at most 100, got %d", c.Search.Limit)
	}
	if c.Search.MaxContextLength < 500 || c.Search.MaxContextLength > 4000 {
		return fmt.Errorf("search.max_context_length must be between 500 and 4000, got %d", c.Search.MaxContextLength)
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
