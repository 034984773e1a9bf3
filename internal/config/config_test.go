package config

import (
	"errors"
	"testing"
)

// mockBackend is an in-memory ConfigBackend for tests.
type mockBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (m *mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mockBackend) SetString(key, val string) error {
	if m.strings == nil {
		m.strings = make(map[string]string)
	}
	m.strings[key] = val
	return nil
}

func (m *mockBackend) SetInt(key string, val int) error {
	if m.ints == nil {
		m.ints = make(map[string]int)
	}
	m.ints[key] = val
	return nil
}

func (m *mockBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		if s.env != "" {
			t.Setenv(s.env, "")
		}
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&mockBackend{}, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("Server.Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.KB.Dir != "kb" {
		t.Errorf("KB.Dir = %q, want kb", cfg.KB.Dir)
	}
	if cfg.KB.TopK != 3 {
		t.Errorf("KB.TopK = %d, want 3", cfg.KB.TopK)
	}
	if cfg.Persist.Interval != "500ms" {
		t.Errorf("Persist.Interval = %q, want 500ms", cfg.Persist.Interval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Auth.Token != "" {
		t.Errorf("Auth.Token = %q, want empty without keychain", cfg.Auth.Token)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := &mockBackend{
		strings: map[string]string{
			"kb.dir":           "/srv/kb",
			"storage.data_dir": "/srv/data",
			"log.level":        "debug",
		},
		ints: map[string]int{
			"server.port": 5000,
			"kb.top_k":    5,
		},
	}
	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.KB.Dir != "/srv/kb" {
		t.Errorf("KB.Dir = %q", cfg.KB.Dir)
	}
	if cfg.KB.TopK != 5 {
		t.Errorf("KB.TopK = %d, want 5", cfg.KB.TopK)
	}
	if cfg.Storage.DataDir != "/srv/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPPORTD_SERVER_PORT", "7001")
	t.Setenv("SUPPORTD_KB_DIR", "/env/kb")
	t.Setenv("SUPPORTD_AUTH_TOKEN", "env-token")

	b := &mockBackend{
		strings: map[string]string{"kb.dir": "/file/kb"},
		ints:    map[string]int{"server.port": 5000},
	}
	cfg, err := loadWith(b, mockKeychain{value: "keychain-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %d, want env override 7001", cfg.Server.Port)
	}
	if cfg.KB.Dir != "/env/kb" {
		t.Errorf("KB.Dir = %q, want env override", cfg.KB.Dir)
	}
	if cfg.Auth.Token != "env-token" {
		t.Errorf("Auth.Token = %q, want env value over keychain", cfg.Auth.Token)
	}
}

func TestKeychainFallbackForToken(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&mockBackend{}, mockKeychain{value: "keychain-secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.Token != "keychain-secret" {
		t.Errorf("Auth.Token = %q, want keychain-secret", cfg.Auth.Token)
	}
}

func TestSetKeyRejectsSecrets(t *testing.T) {
	if err := SetKey("auth.token", "x"); err == nil {
		t.Error("SetKey on a secret returned nil error")
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "auth.token" {
			t.Error("ValidKeys includes the secret auth.token")
		}
	}
}
