// Package config resolves the store's runtime configuration (component
// C5): command-line flags, then a TOML file, then built-in defaults, per
// the teacher's own GlobalPath/Load layering.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

const (
	DefaultBindHost = "127.0.0.1"
	DefaultBindPort = 7475
	DefaultLogLevel = "info"

	configDirEnvKey  = "RUSTORE_CONFIG_DIR"
	configFileName   = ".rustore.toml"
	tokensSideFile   = ".tokens"
)

// Config is rustore's resolved runtime configuration.
type Config struct {
	StoreRoot string `toml:"store_root"`
	BindHost  string `toml:"bind_host"`
	BindPort  int    `toml:"bind_port"`
	AuthToken string `toml:"auth_token"`
	LogLevel  string `toml:"log_level"`
}

// Default returns the built-in defaults, before any file or flag is applied.
func Default() Config {
	home, err := os.UserHomeDir()
	storeRoot := ".rustore"
	if err == nil {
		storeRoot = filepath.Join(home, ".rustore", "store")
	}
	return Config{
		StoreRoot: storeRoot,
		BindHost:  DefaultBindHost,
		BindPort:  DefaultBindPort,
		LogLevel:  DefaultLogLevel,
	}
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

// GlobalPath returns the path to rustore's TOML config file: an
// RUSTORE_CONFIG_DIR override if set, otherwise a well-known file under
// os.UserConfigDir().
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rustore", configFileName), nil
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

// Load resolves configuration from the global config file over the
// built-in defaults. Command-line flags are applied by the caller on
// top of the returned Config, completing the flags > file > defaults
// order of spec.md §4.5.
func Load() (*Config, error) {
	cfg := Default()

	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	if _, err := loadFileIfExists(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return &cfg, nil
}

// Save persists cfg to path as TOML, creating parent directories as
// needed, matching the teacher's toml.NewEncoder write-back pattern.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureAuthToken generates and persists a fresh auth token into cfg and
// path if one isn't already configured, logging the generated value
// once (spec §4.5: "if unset, a random UUID is generated on first run,
// persisted to the config file, and logged once"). It reports whether a
// token was generated.
func EnsureAuthToken(cfg *Config, path string, logger *slog.Logger) (bool, error) {
	if cfg.AuthToken != "" {
		return false, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.AuthToken = uuid.NewString()
	if err := Save(path, *cfg); err != nil {
		return false, fmt.Errorf("persisting generated auth token: %w", err)
	}
	logger.Info("generated new auth token", "auth_token", cfg.AuthToken, "config_path", path)
	return true, nil
}

// GenerateToken mints a fresh UUID token, writes it into the config
// file's auth_token key, and appends it to <store_root>/.tokens,
// matching the original's separate generate/save-token split (spec §3).
func GenerateToken(cfg *Config, configPath string) (string, error) {
	token := uuid.NewString()
	cfg.AuthToken = token
	if err := Save(configPath, *cfg); err != nil {
		return "", err
	}
	if cfg.StoreRoot != "" {
		tokensPath := filepath.Join(cfg.StoreRoot, tokensSideFile)
		if err := os.MkdirAll(cfg.StoreRoot, 0o755); err != nil {
			return "", fmt.Errorf("creating store root for token file: %w", err)
		}
		f, err := os.OpenFile(tokensPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return "", fmt.Errorf("opening token file %s: %w", tokensPath, err)
		}
		defer f.Close()
		if _, err := fmt.Fprintln(f, token); err != nil {
			return "", fmt.Errorf("writing token file %s: %w", tokensPath, err)
		}
	}
	return token, nil
}

// Addr formats the configured bind host and port as a net.Listen address.
func (c Config) Addr() string {
	return c.BindHost + ":" + strconv.Itoa(c.BindPort)
}
