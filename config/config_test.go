// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const (
	hexFactory  = "0xFaFaFaFaFaFaFaFaFaFaFaFaFaFaFaFaFaFaFaFa"
	hexOwner    = "0x0f0F0f0F0f0F0F0f0F0F0F0F0F0F0f0F0F0F0f0F"
	hexTemplate = "0x7e7E7e7E7e7E7E7e7E7E7E7e7E7e7E7e7e7e7e7E"
	hexWallet   = "0xFEfeFeFeFeFeFEfEfEfEfEFeFEfefEfEfeFEfEFE"
)

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"MetricsAddr", cfg.MetricsAddr, ":9464"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"Debug", cfg.Debug, false},
		{"SentryDSN", cfg.SentryDSN, ""},
		{"PlatformFeeBps", cfg.Factory.PlatformFeeBps, uint64(0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if !strings.HasSuffix(cfg.DataDir, ".revsplit") {
		t.Errorf("DataDir = %q, want suffix .revsplit", cfg.DataDir)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestPaths(t *testing.T) {
	if got := ConfigPath("/data"); got != filepath.Join("/data", "config.yaml") {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := DBPath("/data"); got != filepath.Join("/data", "revsplit.db") {
		t.Errorf("DBPath = %q", got)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func sampleConfig() Config {
	return Config{
		DataDir:     "/tmp/test-revsplit",
		LogLevel:    "debug",
		Debug:       true,
		MetricsAddr: "127.0.0.1:9100",
		Factory: FactoryConfig{
			Address:        hexFactory,
			Owner:          hexOwner,
			Template:       hexTemplate,
			PlatformFeeBps: 100_000,
			PlatformWallet: hexWallet,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	original := sampleConfig()

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"DataDir", loaded.DataDir, original.DataDir},
		{"LogLevel", loaded.LogLevel, original.LogLevel},
		{"Debug", loaded.Debug, original.Debug},
		{"MetricsAddr", loaded.MetricsAddr, original.MetricsAddr},
		{"Factory.Address", loaded.Factory.Address, original.Factory.Address},
		{"Factory.Owner", loaded.Factory.Owner, original.Factory.Owner},
		{"Factory.Template", loaded.Factory.Template, original.Factory.Template},
		{"Factory.PlatformFeeBps", loaded.Factory.PlatformFeeBps, original.Factory.PlatformFeeBps},
		{"Factory.PlatformWallet", loaded.Factory.PlatformWallet, original.Factory.PlatformWallet},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}
}

func TestSaveConfig_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions not enforced on windows")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfig(path, sampleConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestSaveConfig_RequiresYAMLExtension(t *testing.T) {
	err := SaveConfig(filepath.Join(t.TempDir(), "config"), sampleConfig())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: [unterminated\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "log_level: warn\nunknown_key: ignored\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.MetricsAddr != ":9464" {
		t.Errorf("MetricsAddr = %q, want default :9464", cfg.MetricsAddr)
	}
	if cfg.DataDir != DefaultDataDir() {
		t.Errorf("DataDir = %q, want default", cfg.DataDir)
	}
}

// ---------------------------------------------------------------------------
// Environment override tests
// ---------------------------------------------------------------------------

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfig(path, sampleConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	t.Setenv("REVSPLIT_LOG_LEVEL", "error")
	t.Setenv("REVSPLIT_FACTORY_PLATFORM_FEE_BPS", "250000")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
	if cfg.Factory.PlatformFeeBps != 250_000 {
		t.Errorf("PlatformFeeBps = %d, want 250000", cfg.Factory.PlatformFeeBps)
	}
	if cfg.Factory.Owner != hexOwner {
		t.Errorf("Owner = %q, want value from file", cfg.Factory.Owner)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := SaveConfig(path, sampleConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	env := "REVSPLIT_METRICS_ADDR=127.0.0.1:9999\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// Registers cleanup for the variable the .env file sets.
	t.Setenv("REVSPLIT_METRICS_ADDR", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MetricsAddr != "127.0.0.1:9999" {
		t.Errorf("MetricsAddr = %q, want 127.0.0.1:9999", cfg.MetricsAddr)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("REVSPLIT_DATA_DIR", "/srv/revsplit")
	t.Setenv("REVSPLIT_FACTORY_OWNER", hexOwner)

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.DataDir != "/srv/revsplit" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Factory.Owner != hexOwner {
		t.Errorf("Owner = %q", cfg.Factory.Owner)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"bad metrics addr", func(c *Config) { c.MetricsAddr = "9100" }, ErrInvalidMetricsAddr},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }, nil},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, ErrInvalidLogLevel},
		{"upper-case log level", func(c *Config) { c.LogLevel = "WARN" }, nil},
		{"bad factory address", func(c *Config) { c.Factory.Address = "0x1234" }, ErrInvalidAddress},
		{"bad wallet", func(c *Config) { c.Factory.PlatformWallet = "not-hex" }, ErrInvalidAddress},
		{"empty addresses", func(c *Config) { c.Factory = FactoryConfig{} }, nil},
		{"fee at scale", func(c *Config) { c.Factory.PlatformFeeBps = 10_000_000 }, nil},
		{"fee above scale", func(c *Config) { c.Factory.PlatformFeeBps = 10_000_001 }, ErrInvalidFee},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := sampleConfig()
			tc.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// FactoryParams tests
// ---------------------------------------------------------------------------

func TestFactoryParams(t *testing.T) {
	fc, err := sampleConfig().Factory.FactoryParams()
	if err != nil {
		t.Fatalf("FactoryParams: %v", err)
	}
	if fc.Address != common.HexToAddress(hexFactory) {
		t.Errorf("Address = %s", fc.Address.Hex())
	}
	if fc.PlatformWallet != common.HexToAddress(hexWallet) {
		t.Errorf("PlatformWallet = %s", fc.PlatformWallet.Hex())
	}
	if fc.PlatformFeeBps != 100_000 {
		t.Errorf("PlatformFeeBps = %d", fc.PlatformFeeBps)
	}

	missing := sampleConfig().Factory
	missing.Template = ""
	if _, err := missing.FactoryParams(); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("missing template: got %v, want ErrInvalidAddress", err)
	}

	noWallet := sampleConfig().Factory
	noWallet.PlatformWallet = ""
	fc, err = noWallet.FactoryParams()
	if err != nil {
		t.Fatalf("FactoryParams without wallet: %v", err)
	}
	if fc.PlatformWallet != (common.Address{}) {
		t.Errorf("PlatformWallet = %s, want null", fc.PlatformWallet.Hex())
	}
}
