// Package config provides configuration management using the Singleton pattern.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/voxrelay/voxrelay/internal/upstream"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "VOXRELAY"

	// EnvAPIKey is the primary environment variable for the upstream
	// credential. It takes priority over file configuration so the key
	// never has to live on disk.
	EnvAPIKey = "VOXRELAY_API_KEY"

	// EnvEndpoints overrides the endpoint rotation with a comma-separated
	// list of base URLs. Kinds are inferred from each URL.
	EnvEndpoints = "VOXRELAY_ENDPOINTS"
)

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. VOXRELAY_API_KEY / VOXRELAY_ENDPOINTS env vars
// 2. Environment variables (prefixed with VOXRELAY_)
// 3. config.yaml - fallback for local development
// 4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voxrelay")
		v.AddConfigPath("$HOME/.voxrelay")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is fine, env vars cover everything.
			fmt.Fprintf(os.Stderr, "[SECURITY] Config file not found, using environment variables only (recommended)\n")
		} else {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	applyCredentialEnv(&cfg)
	if err := applyEndpointsEnv(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "load_env_endpoints",
			Err: err,
		}
	}

	normalizeEndpoints(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Upstream defaults
	v.SetDefault("upstream.model", upstream.DefaultModel)
	v.SetDefault("upstream.timeout_seconds", 30)
	v.SetDefault("upstream.max_retries", upstream.DefaultMaxRetries)
	v.SetDefault("upstream.cooldown_seconds", 60)

	// Origin defaults
	v.SetDefault("origin.environment", "production")
	v.SetDefault("origin.bypass", false)

	// Bridge defaults
	v.SetDefault("bridge.dedupe_capacity", 128)
	v.SetDefault("bridge.rate_cap", 30)
	v.SetDefault("bridge.rate_interval_millis", 1000)

	// Auth defaults
	v.SetDefault("auth.token_ttl_seconds", 3600)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "")
}

// applyCredentialEnv overrides the upstream credential from VOXRELAY_API_KEY.
func applyCredentialEnv(cfg *Configuration) {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		cfg.Upstream.APIKey = key
		fmt.Fprintf(os.Stderr, "[SECURITY] Using %s env var (file config credential ignored)\n", EnvAPIKey)
	}
}

// applyEndpointsEnv replaces the endpoint rotation from VOXRELAY_ENDPOINTS.
// Format: comma-separated base URLs, e.g. "https://a.example.com,https://b.example.com".
func applyEndpointsEnv(cfg *Configuration) error {
	envValue := os.Getenv(EnvEndpoints)
	if envValue == "" {
		return nil
	}

	urls := strings.Split(envValue, ",")
	endpoints := make([]upstream.Endpoint, 0, len(urls))
	for _, raw := range urls {
		base := strings.TrimSpace(raw)
		if base == "" {
			continue
		}
		endpoints = append(endpoints, upstream.Endpoint{
			BaseURL: base,
			Kind:    detectKindFromURL(base),
		})
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("%s is set but contains no usable URLs", EnvEndpoints)
	}

	cfg.Upstream.Endpoints = endpoints
	return nil
}

// detectKindFromURL infers an endpoint kind from its base URL shape.
func detectKindFromURL(base string) upstream.Kind {
	switch {
	case strings.Contains(base, "?url="):
		return upstream.KindQueryProxy
	case strings.Contains(base, "api.openai.com"):
		return upstream.KindDirect
	case strings.Contains(base, "localhost"), strings.Contains(base, "127.0.0.1"):
		return upstream.KindSelfHosted
	default:
		return upstream.KindPathProxy
	}
}

// normalizeEndpoints fills in the default kind for endpoints that omit it.
func normalizeEndpoints(cfg *Configuration) {
	for i := range cfg.Upstream.Endpoints {
		if cfg.Upstream.Endpoints[i].Kind == "" {
			cfg.Upstream.Endpoints[i].Kind = detectKindFromURL(cfg.Upstream.Endpoints[i].BaseURL)
		}
	}
}
