package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Settings are the user-adjustable runtime preferences, persisted as a
// small JSON document so they survive restarts. Unlike Configuration,
// settings change while the server runs.
type Settings struct {
	mu   sync.RWMutex
	path string

	data settingsData
}

type settingsData struct {
	APIKey         string `json:"apiKey,omitempty"`
	UseServerProxy bool   `json:"useServerProxy"`
	ServerProxyURL string `json:"serverProxyUrl,omitempty"`
	ResponseStyle  string `json:"responseStyle,omitempty"`
}

// DefaultResponseStyle is used when no style has been chosen.
const DefaultResponseStyle = "casual"

// OpenSettings loads the settings file at path, creating defaults when
// the file does not exist. A corrupt file is replaced with defaults
// rather than failing startup.
func OpenSettings(path string) (*Settings, error) {
	s := &Settings{
		path: path,
		data: settingsData{
			UseServerProxy: true,
			ResponseStyle:  DefaultResponseStyle,
		},
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = settingsData{UseServerProxy: true, ResponseStyle: DefaultResponseStyle}
	}
	if s.data.ResponseStyle == "" {
		s.data.ResponseStyle = DefaultResponseStyle
	}
	return s, nil
}

// APIKey returns the user-provided credential, if any.
func (s *Settings) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.APIKey
}

// SetAPIKey stores the user credential.
func (s *Settings) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.APIKey = key
	return s.saveLocked()
}

// UseServerProxy reports whether requests route through the server proxy.
func (s *Settings) UseServerProxy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.UseServerProxy
}

// SetUseServerProxy toggles server proxy routing.
func (s *Settings) SetUseServerProxy(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.UseServerProxy = on
	return s.saveLocked()
}

// ServerProxyURL returns the user-chosen proxy base URL, if any.
func (s *Settings) ServerProxyURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ServerProxyURL
}

// SetServerProxyURL stores the proxy base URL.
func (s *Settings) SetServerProxyURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ServerProxyURL = url
	return s.saveLocked()
}

// ResponseStyle returns the assistant response style. Implements the
// style source used by the assistant package.
func (s *Settings) ResponseStyle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.ResponseStyle == "" {
		return DefaultResponseStyle
	}
	return s.data.ResponseStyle
}

// SetResponseStyle stores the assistant response style.
func (s *Settings) SetResponseStyle(style string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ResponseStyle = style
	return s.saveLocked()
}

// Snapshot returns a copy of all settings for serving to clients. The
// credential is masked.
func (s *Settings) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	masked := ""
	if s.data.APIKey != "" {
		masked = "********"
	}
	return map[string]any{
		"apiKey":         masked,
		"useServerProxy": s.data.UseServerProxy,
		"serverProxyUrl": s.data.ServerProxyURL,
		"responseStyle":  s.data.ResponseStyle,
	}
}

// saveLocked writes the settings file. Callers must hold the write lock.
// Writes go through a temp file so a crash never leaves a torn document.
func (s *Settings) saveLocked() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}
