package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voxrelay/voxrelay/internal/upstream"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	path := writeConfigFile(t, `
upstream:
  endpoints:
    - base_url: https://relay.example.com
`)

	cfg, err := GetConfigWithPath(path)
	if err != nil {
		t.Fatalf("GetConfigWithPath: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Bridge.RateCap != 30 {
		t.Errorf("default rate cap = %d, want 30", cfg.Bridge.RateCap)
	}
	if cfg.Bridge.DedupeCapacity != 128 {
		t.Errorf("default dedupe capacity = %d, want 128", cfg.Bridge.DedupeCapacity)
	}
	if cfg.Upstream.Model != upstream.DefaultModel {
		t.Errorf("default model = %q, want %q", cfg.Upstream.Model, upstream.DefaultModel)
	}
	if cfg.Origin.Environment != "production" {
		t.Errorf("default environment = %q, want production", cfg.Origin.Environment)
	}
}

func TestLoadConfigKindInference(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	path := writeConfigFile(t, `
upstream:
  endpoints:
    - base_url: http://localhost:9999
    - base_url: https://api.openai.com
    - base_url: https://cors.example.com/?url=
    - base_url: https://relay.example.com
    - base_url: https://wrapped.example.com
      kind: wrap-proxy
`)

	cfg, err := GetConfigWithPath(path)
	if err != nil {
		t.Fatalf("GetConfigWithPath: %v", err)
	}

	want := []upstream.Kind{
		upstream.KindSelfHosted,
		upstream.KindDirect,
		upstream.KindQueryProxy,
		upstream.KindPathProxy,
		upstream.KindWrapProxy,
	}
	if len(cfg.Upstream.Endpoints) != len(want) {
		t.Fatalf("endpoint count = %d, want %d", len(cfg.Upstream.Endpoints), len(want))
	}
	for i, kind := range want {
		if cfg.Upstream.Endpoints[i].Kind != kind {
			t.Errorf("endpoint[%d].Kind = %q, want %q", i, cfg.Upstream.Endpoints[i].Kind, kind)
		}
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	t.Setenv(EnvAPIKey, "sk-test-credential")
	t.Setenv(EnvEndpoints, "https://a.example.com, https://b.example.com")

	path := writeConfigFile(t, `
upstream:
  api_key: file-credential
  endpoints:
    - base_url: https://ignored.example.com
`)

	cfg, err := GetConfigWithPath(path)
	if err != nil {
		t.Fatalf("GetConfigWithPath: %v", err)
	}

	if cfg.Upstream.APIKey != "sk-test-credential" {
		t.Errorf("APIKey = %q, want env value", cfg.Upstream.APIKey)
	}
	if len(cfg.Upstream.Endpoints) != 2 {
		t.Fatalf("endpoint count = %d, want 2 from env", len(cfg.Upstream.Endpoints))
	}
	if cfg.Upstream.Endpoints[0].BaseURL != "https://a.example.com" {
		t.Errorf("endpoint[0] = %q", cfg.Upstream.Endpoints[0].BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Configuration{
		Server: ServerConfig{Port: 0},
		Bridge: BridgeConfig{RateCap: 0, DedupeCapacity: 0},
		Origin: OriginConfig{Environment: "staging"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	for _, field := range []string{"server.port", "upstream.endpoints", "origin.environment", "bridge.rate_cap", "bridge.dedupe_capacity"} {
		if !verr.HasError(field) {
			t.Errorf("expected validation error for %s", field)
		}
	}
}

func TestValidateRejectsUnknownEndpointKind(t *testing.T) {
	cfg := &Configuration{
		Server: ServerConfig{Port: 8080},
		Upstream: UpstreamConfig{Endpoints: []upstream.Endpoint{
			{BaseURL: "https://x.example.com", Kind: upstream.Kind("mystery")},
		}},
		Bridge: BridgeConfig{RateCap: 30, DedupeCapacity: 128},
	}

	err := cfg.Validate()
	if !IsValidationError(err) {
		t.Fatalf("Validate() = %v, want ValidationError", err)
	}
}

func TestSingletonReturnsSameInstance(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	path := writeConfigFile(t, `
upstream:
  endpoints:
    - base_url: https://relay.example.com
`)

	first, err := GetConfigWithPath(path)
	if err != nil {
		t.Fatalf("GetConfigWithPath: %v", err)
	}
	second, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if first != second {
		t.Error("singleton returned different instances")
	}
}
