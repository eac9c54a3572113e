// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidMetricsAddr indicates the metrics listen address is malformed.
	ErrInvalidMetricsAddr = errors.New("config: invalid metrics listen address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfig indicates the configuration file could not be parsed or written.
	ErrInvalidConfig = errors.New("config: invalid configuration file")

	// ErrInvalidAddress indicates a factory address is not a 20-byte hex string.
	ErrInvalidAddress = errors.New("config: invalid address")

	// ErrInvalidFee indicates a platform fee above 10000000 (100%).
	ErrInvalidFee = errors.New("config: platform fee exceeds 10000000")
)
