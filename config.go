package ulsdk

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/AlvinCoded/universal-license-sdk-go/retry"
	"github.com/AlvinCoded/universal-license-sdk-go/store"
)

// Defaults applied by New for zero-valued fields.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultRetries  = 3
	DefaultCacheTTL = time.Hour
)

// envPrefix namespaces the SDK's environment variables (ULS_BASE_URL,
// ULS_API_KEY, ...).
const envPrefix = "ULS"

// CacheBackend selects the storage adapter behind the license cache.
type CacheBackend string

const (
	// BackendMemory keeps cache entries in process memory.
	BackendMemory CacheBackend = "memory"
	// BackendFile persists cache entries to StorePath.
	BackendFile CacheBackend = "file"
	// BackendSession persists to a temp-dir file wiped on Close.
	BackendSession CacheBackend = "session"
)

// Config is the client configuration surface.
type Config struct {
	// BaseURL of the license server. Required.
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`

	// APIKey is the admin bearer token for privileged endpoints.
	APIKey string `yaml:"api_key" envconfig:"API_KEY"`

	// AppKey and AppCode are app-scoped credentials.
	AppKey  string `yaml:"app_key" envconfig:"APP_KEY"`
	AppCode string `yaml:"app_code" envconfig:"APP_CODE"`

	// Timeout bounds each request attempt. Default 30s.
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	// Retries is the retry budget for transient failures. Default 3;
	// set to a negative value for zero retries.
	Retries int `yaml:"retries" envconfig:"RETRIES"`

	// DisableCache turns the validation cache off. Caching is on by
	// default.
	DisableCache bool `yaml:"disable_cache" envconfig:"DISABLE_CACHE"`

	// CacheTTL bounds staleness of cached entries. Default 1h.
	CacheTTL time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`

	// CacheBackend selects the storage adapter. Default memory.
	CacheBackend CacheBackend `yaml:"cache_backend" envconfig:"CACHE_BACKEND" validate:"omitempty,oneof=memory file session"`

	// StorePath is the cache file location for the file backend.
	StorePath string `yaml:"store_path" envconfig:"STORE_PATH"`

	// StorePassphrase enables at-rest encryption of the cache file.
	StorePassphrase string `yaml:"store_passphrase" envconfig:"STORE_PASSPHRASE"`

	// StorePrefix namespaces SDK entries in the underlying store.
	StorePrefix string `yaml:"store_prefix" envconfig:"STORE_PREFIX"`

	// DeviceID overrides the derived device fingerprint.
	DeviceID string `yaml:"device_id" envconfig:"DEVICE_ID"`

	// Debug enables request/response logging. Never on by default:
	// requests contain license keys and bearer tokens.
	Debug bool `yaml:"debug" envconfig:"DEBUG"`

	// Headers are additive custom headers sent with every request.
	Headers map[string]string `yaml:"headers" envconfig:"HEADERS"`

	// RateLimit throttles outgoing requests per second. Zero disables.
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"min=0"`
	RateBurst int     `yaml:"rate_burst" envconfig:"RATE_BURST" validate:"min=0"`

	// RetryPolicy overrides the whole backoff policy (delays,
	// multiplier, retryable codes). When nil, the default policy with
	// the Retries budget applies.
	RetryPolicy *retry.Config `yaml:"-" envconfig:"-"`

	// Store injects a custom storage adapter, overriding CacheBackend.
	// Host applications use this to substitute an isolated namespace
	// or an in-memory store in tests.
	Store store.Store `yaml:"-" envconfig:"-"`

	// Logger receives SDK logging. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-" envconfig:"-"`

	// OnRetry is an optional hook invoked before each retry.
	OnRetry retry.OnRetry `yaml:"-" envconfig:"-"`
}

// DefaultConfig returns a config with every default filled in.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      DefaultTimeout,
		Retries:      DefaultRetries,
		CacheTTL:     DefaultCacheTTL,
		CacheBackend: BackendMemory,
	}
}

// LoadConfig builds a config from ULS_-prefixed environment variables,
// optionally merged over a YAML file named by ULS_CONFIG_FILE.
func LoadConfig() (Config, error) {
	var cfg Config

	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Environment wins over the file.
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("load config from env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// Validate checks the configuration surface.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.CacheBackend == BackendFile && c.StorePath == "" {
		return fmt.Errorf("invalid config: file cache backend requires store_path")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retries == 0 {
		c.Retries = DefaultRetries
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.CacheBackend == "" {
		c.CacheBackend = BackendMemory
	}
	if c.StorePrefix == "" {
		c.StorePrefix = store.DefaultPrefix
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
