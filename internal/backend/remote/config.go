package remote

import (
	"os"
	"time"
)

// Environment variable names for remote provider configuration.
const (
	envBaseURL        = "RUNBOX_REMOTE_BASE_URL"
	envCatalogTTL     = "RUNBOX_REMOTE_CATALOG_TTL"
	envCatalogTimeout = "RUNBOX_REMOTE_CATALOG_TIMEOUT"
	envExecuteTimeout = "RUNBOX_REMOTE_EXECUTE_TIMEOUT"
)

// Defaults applied by LoadConfig.
const (
	DefaultBaseURL        = "https://emkc.org/api/v2/piston"
	DefaultCatalogTTL     = 5 * time.Minute
	DefaultCatalogTimeout = 15 * time.Second
	DefaultExecuteTimeout = 20 * time.Second
)

// Config holds configuration for the remote provider backend.
type Config struct {
	// BaseURL is the provider API root; /runtimes and /execute hang off it.
	BaseURL string

	// CatalogTTL is how long a fetched runtime catalog is reused.
	CatalogTTL time.Duration

	// CatalogTimeout bounds one GET /runtimes call.
	CatalogTimeout time.Duration

	// ExecuteTimeout bounds one POST /execute call.
	ExecuteTimeout time.Duration
}

// LoadConfig reads remote provider configuration from environment variables,
// applying defaults for values not set.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:        DefaultBaseURL,
		CatalogTTL:     DefaultCatalogTTL,
		CatalogTimeout: DefaultCatalogTimeout,
		ExecuteTimeout: DefaultExecuteTimeout,
	}

	if v := os.Getenv(envBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if d, ok := durationEnv(envCatalogTTL); ok {
		cfg.CatalogTTL = d
	}
	if d, ok := durationEnv(envCatalogTimeout); ok {
		cfg.CatalogTimeout = d
	}
	if d, ok := durationEnv(envExecuteTimeout); ok {
		cfg.ExecuteTimeout = d
	}

	return cfg
}

func durationEnv(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.CatalogTTL <= 0 {
		c.CatalogTTL = DefaultCatalogTTL
	}
	if c.CatalogTimeout <= 0 {
		c.CatalogTimeout = DefaultCatalogTimeout
	}
	if c.ExecuteTimeout <= 0 {
		c.ExecuteTimeout = DefaultExecuteTimeout
	}
	return c
}
