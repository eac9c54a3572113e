// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the revsplit configuration file. Values
// come from a YAML file, then an optional .env next to it, then REVSPLIT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bitfsorg/librevsplit-go/factory"
)

// EnvPrefix is the prefix of environment overrides, e.g. REVSPLIT_LOG_LEVEL.
const EnvPrefix = "REVSPLIT"

// FactoryConfig describes the factory deployment. Addresses are hex strings.
type FactoryConfig struct {
	Address        string `mapstructure:"address"`
	Owner          string `mapstructure:"owner"`
	Template       string `mapstructure:"template"`
	PlatformFeeBps uint64 `mapstructure:"platform_fee_bps"`
	PlatformWallet string `mapstructure:"platform_wallet"`
}

// Config holds the revsplit configuration.
type Config struct {
	DataDir     string        `mapstructure:"data_dir"`
	LogLevel    string        `mapstructure:"log_level"`
	Debug       bool          `mapstructure:"debug"`
	SentryDSN   string        `mapstructure:"sentry_dsn"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Factory     FactoryConfig `mapstructure:"factory"`
}

// keys lists every configuration key, used for defaults, env binding and saving.
var keys = []string{
	"data_dir",
	"log_level",
	"debug",
	"sentry_dsn",
	"metrics_addr",
	"factory.address",
	"factory.owner",
	"factory.template",
	"factory.platform_fee_bps",
	"factory.platform_wallet",
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    "info",
		MetricsAddr: ":9464",
	}
}

// DefaultDataDir returns ~/.revsplit, or .revsplit when the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".revsplit"
	}
	return filepath.Join(home, ".revsplit")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// DBPath returns the state database path inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "revsplit.db")
}

// LoadConfig reads the configuration file at path. Unset keys keep their
// defaults and environment variables override file values.
func LoadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	loadEnv(filepath.Dir(path))
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return unmarshal(v)
}

// LoadEnv builds a Config from defaults and environment variables only.
func LoadEnv() (Config, error) {
	loadEnv(".")
	return unmarshal(newViper())
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
// The path must carry a .yaml or .yml extension.
func SaveConfig(path string, cfg Config) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s must end in .yaml", ErrInvalidConfig, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	v := viper.New()
	v.Set("data_dir", cfg.DataDir)
	v.Set("log_level", cfg.LogLevel)
	v.Set("debug", cfg.Debug)
	v.Set("sentry_dsn", cfg.SentryDSN)
	v.Set("metrics_addr", cfg.MetricsAddr)
	v.Set("factory.address", cfg.Factory.Address)
	v.Set("factory.owner", cfg.Factory.Owner)
	v.Set("factory.template", cfg.Factory.Template)
	v.Set("factory.platform_fee_bps", cfg.Factory.PlatformFeeBps)
	v.Set("factory.platform_wallet", cfg.Factory.PlatformWallet)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrInvalidConfig, path, err)
	}
	return os.Chmod(path, 0600)
}

// FactoryParams converts the factory section into factory.Config. Every
// address except the platform wallet is required.
func (c FactoryConfig) FactoryParams() (factory.Config, error) {
	if err := validateFactory(c); err != nil {
		return factory.Config{}, err
	}
	for name, value := range map[string]string{
		"factory.address":  c.Address,
		"factory.owner":    c.Owner,
		"factory.template": c.Template,
	} {
		if value == "" {
			return factory.Config{}, fmt.Errorf("%w: %s is required", ErrInvalidAddress, name)
		}
	}
	return factory.Config{
		Address:        common.HexToAddress(c.Address),
		Owner:          common.HexToAddress(c.Owner),
		Template:       common.HexToAddress(c.Template),
		PlatformFeeBps: c.PlatformFeeBps,
		PlatformWallet: common.HexToAddress(c.PlatformWallet),
	}, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("sentry_dsn", def.SentryDSN)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("factory.platform_fee_bps", def.Factory.PlatformFeeBps)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Explicit binding lets env vars reach Unmarshal for keys absent from the file.
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	return v
}

func unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// loadEnv loads dir/.env then dir/.env.local; later files override earlier ones.
func loadEnv(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(dir, name))
	}
}
