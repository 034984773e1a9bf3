package config

import (
	"strings"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	KB      KBConfig
	Persist PersistConfig
	Log     LogConfig
	Auth    AuthConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type KBConfig struct {
	Dir  string
	TopK int
}

type PersistConfig struct {
	Interval string
}

type LogConfig struct {
	Level string
}

type AuthConfig struct {
	Token string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		KB: KBConfig{
			Dir:  "kb",
			TopK: 3,
		},
		Persist: PersistConfig{
			Interval: "500ms",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.supportd.app) and the
// auth token falls back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/supportd/config.json
// and the token falls back to a secrets file under $XDG_DATA_HOME/supportd.
//
// Environment variables (SUPPORTD_*) override backend values on all
// platforms. An empty auth token is allowed; the server generates one on
// first start.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Auth.Token == "" {
		if token, err := kc.Get("supportd", "auth_token"); err == nil && token != "" {
			cfg.Auth.Token = token
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
