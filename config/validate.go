// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "strings"

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validIndexes = map[string]bool{
	"json": true,
	"bolt": true,
}

var validHashes = map[string]bool{
	"md5":     true,
	"blake2b": true,
	"blake3":  true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return ErrEmptyDataDir
	}

	if !validIndexes[strings.ToLower(cfg.Index)] {
		return ErrInvalidIndex
	}

	if !validHashes[strings.ToLower(cfg.Hash)] {
		return ErrInvalidHash
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}
