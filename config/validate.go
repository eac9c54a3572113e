// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/librevsplit-go/revshare"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.MetricsAddr != "" {
		if err := validateAddr(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMetricsAddr, err)
		}
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return validateFactory(cfg.Factory)
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}

// validateFactory accepts empty addresses; they are required only when a
// factory is actually deployed.
func validateFactory(fc FactoryConfig) error {
	fields := []struct {
		name  string
		value string
	}{
		{"factory.address", fc.Address},
		{"factory.owner", fc.Owner},
		{"factory.template", fc.Template},
		{"factory.platform_wallet", fc.PlatformWallet},
	}
	for _, f := range fields {
		if f.value != "" && !common.IsHexAddress(f.value) {
			return fmt.Errorf("%w: %s = %q", ErrInvalidAddress, f.name, f.value)
		}
	}
	if fc.PlatformFeeBps > revshare.PercentageScale {
		return fmt.Errorf("%w: %d", ErrInvalidFee, fc.PlatformFeeBps)
	}
	return nil
}
