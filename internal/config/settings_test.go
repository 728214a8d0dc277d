package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenSettingsMissingFileUsesDefaults(t *testing.T) {
	s, err := OpenSettings(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("OpenSettings: %v", err)
	}

	if !s.UseServerProxy() {
		t.Error("UseServerProxy default = false, want true")
	}
	if s.ResponseStyle() != DefaultResponseStyle {
		t.Errorf("ResponseStyle default = %q, want %q", s.ResponseStyle(), DefaultResponseStyle)
	}
	if s.APIKey() != "" {
		t.Errorf("APIKey default = %q, want empty", s.APIKey())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s, err := OpenSettings(path)
	if err != nil {
		t.Fatalf("OpenSettings: %v", err)
	}
	if err := s.SetAPIKey("sk-user-key"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := s.SetResponseStyle("formal"); err != nil {
		t.Fatalf("SetResponseStyle: %v", err)
	}
	if err := s.SetUseServerProxy(false); err != nil {
		t.Fatalf("SetUseServerProxy: %v", err)
	}

	reopened, err := OpenSettings(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.APIKey() != "sk-user-key" {
		t.Errorf("APIKey = %q after reopen", reopened.APIKey())
	}
	if reopened.ResponseStyle() != "formal" {
		t.Errorf("ResponseStyle = %q after reopen", reopened.ResponseStyle())
	}
	if reopened.UseServerProxy() {
		t.Error("UseServerProxy = true after reopen, want false")
	}
}

func TestOpenSettingsCorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := OpenSettings(path)
	if err != nil {
		t.Fatalf("OpenSettings: %v", err)
	}
	if !s.UseServerProxy() || s.ResponseStyle() != DefaultResponseStyle {
		t.Error("corrupt file did not reset to defaults")
	}
}

func TestSettingsSnapshotMasksCredential(t *testing.T) {
	s, err := OpenSettings(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("OpenSettings: %v", err)
	}
	if err := s.SetAPIKey("sk-secret"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	snap := s.Snapshot()
	if snap["apiKey"] != "********" {
		t.Errorf("snapshot apiKey = %v, want masked", snap["apiKey"])
	}
}
