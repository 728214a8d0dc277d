// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/voxrelay/voxrelay/internal/upstream"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Upstream proxy endpoint configuration
	Upstream UpstreamConfig `json:"upstream" mapstructure:"upstream"`

	// Origin policy configuration
	Origin OriginConfig `json:"origin" mapstructure:"origin"`

	// Cross-frame bridge configuration
	Bridge BridgeConfig `json:"bridge" mapstructure:"bridge"`

	// Bridge session token configuration
	Auth AuthConfig `json:"auth" mapstructure:"auth"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// UpstreamConfig holds proxy endpoint pool configuration.
type UpstreamConfig struct {
	// Endpoints is the ordered rotation of upstream proxy endpoints.
	Endpoints []upstream.Endpoint `json:"endpoints" mapstructure:"endpoints"`

	// Model is the model name sent on completion requests.
	Model string `json:"model" mapstructure:"model"`

	// APIKey is the server-side upstream credential.
	APIKey string `json:"-" mapstructure:"api_key"`

	// TimeoutSeconds is the per-attempt request timeout.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// CooldownSeconds is the duration a failed endpoint sits out of rotation.
	CooldownSeconds int `json:"cooldown_seconds" mapstructure:"cooldown_seconds"`
}

// OriginConfig holds origin policy configuration.
type OriginConfig struct {
	// AllowedOrigins is the exact-match allow list (scheme and port ignored).
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`

	// TrustedRoots are registrable domains whose subdomains are all allowed.
	TrustedRoots []string `json:"trusted_roots" mapstructure:"trusted_roots"`

	// Environment is "production" or "development".
	Environment string `json:"environment" mapstructure:"environment"`

	// Bypass disables origin checks. Honored only in dev builds.
	Bypass bool `json:"bypass" mapstructure:"bypass"`
}

// BridgeConfig holds cross-frame messaging configuration.
type BridgeConfig struct {
	// DedupeCapacity bounds the seen-message set.
	DedupeCapacity int `json:"dedupe_capacity" mapstructure:"dedupe_capacity"`

	// RateCap is the maximum messages per rate interval.
	RateCap int `json:"rate_cap" mapstructure:"rate_cap"`

	// RateIntervalMillis is the sliding rate window length.
	RateIntervalMillis int `json:"rate_interval_millis" mapstructure:"rate_interval_millis"`
}

// AuthConfig holds bridge attach token configuration.
type AuthConfig struct {
	// Secret signs bridge session tokens. Generated at startup when empty.
	Secret string `json:"-" mapstructure:"secret"`

	// TokenTTLSeconds is the session token lifetime.
	TokenTTLSeconds int `json:"token_ttl_seconds" mapstructure:"token_ttl_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`

	// OutputPath is the file path for log output (empty for stdout).
	OutputPath string `json:"output_path" mapstructure:"output_path"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
// Returns an error if configuration loading fails.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
// This should be used when you need to specify a non-default configuration file path.
// Returns an error if configuration loading fails.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// MustGetConfig returns the singleton Configuration instance.
// It panics if the configuration cannot be loaded.
func MustGetConfig() *Configuration {
	cfg, err := GetConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if required fields are missing.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if len(c.Upstream.Endpoints) == 0 {
		validationErrors = append(validationErrors, "upstream.endpoints cannot be empty, at least one endpoint is required")
	}

	for i, e := range c.Upstream.Endpoints {
		if e.BaseURL == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("upstream.endpoints[%d].base_url is required", i))
		}
		if e.Kind != "" && !isValidEndpointKind(e.Kind) {
			validationErrors = append(validationErrors, fmt.Sprintf(
				"upstream.endpoints[%d].kind '%s' is invalid, must be one of: self-hosted, path-proxy, query-proxy, wrap-proxy, direct",
				i, e.Kind,
			))
		}
	}

	if c.Upstream.MaxRetries < 0 {
		validationErrors = append(validationErrors, "upstream.max_retries must not be negative")
	}

	if c.Origin.Environment != "" && c.Origin.Environment != "production" && c.Origin.Environment != "development" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"origin.environment '%s' is invalid, must be production or development",
			c.Origin.Environment,
		))
	}

	if c.Bridge.RateCap <= 0 {
		validationErrors = append(validationErrors, "bridge.rate_cap must be positive")
	}

	if c.Bridge.DedupeCapacity <= 0 {
		validationErrors = append(validationErrors, "bridge.dedupe_capacity must be positive")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidEndpointKind checks if the endpoint kind is known.
func isValidEndpointKind(kind upstream.Kind) bool {
	switch kind {
	case upstream.KindSelfHosted, upstream.KindPathProxy, upstream.KindQueryProxy,
		upstream.KindWrapProxy, upstream.KindDirect:
		return true
	default:
		return false
	}
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// UpstreamTimeout returns the per-attempt timeout as a duration.
func (c *Configuration) UpstreamTimeout() time.Duration {
	if c.Upstream.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// EndpointCooldown returns the dead-endpoint cooldown as a duration.
func (c *Configuration) EndpointCooldown() time.Duration {
	return time.Duration(c.Upstream.CooldownSeconds) * time.Second
}

// RateInterval returns the bridge rate window as a duration.
func (c *Configuration) RateInterval() time.Duration {
	if c.Bridge.RateIntervalMillis <= 0 {
		return time.Second
	}
	return time.Duration(c.Bridge.RateIntervalMillis) * time.Millisecond
}

// TokenTTL returns the bridge session token lifetime as a duration.
func (c *Configuration) TokenTTL() time.Duration {
	if c.Auth.TokenTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.Auth.TokenTTLSeconds) * time.Second
}
