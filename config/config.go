// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the hashstore configuration file.
//
// The file is a plain list of "key = value" lines. Blank lines and lines
// starting with '#' are ignored, unknown keys are ignored, and keys not
// present keep their DefaultConfig value.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName is the configuration file name inside the data directory.
const ConfigFileName = "config"

// EnvDataDir overrides the data directory when set.
const EnvDataDir = "HASHSTORE_DIR"

// Config holds hashstore settings.
type Config struct {
	DataDir  string // storage root (index + cache/)
	Index    string // "json" or "bolt"
	Hash     string // "md5", "blake2b" or "blake3"
	LogLevel string // "debug", "info", "warn", "error"
	LogFile  string // empty = stderr
}

// DefaultDataDir returns ~/.hashstore, or ./.hashstore if the home
// directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".hashstore"
	}
	return filepath.Join(home, ".hashstore")
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Index:    "json",
		Hash:     "md5",
		LogLevel: "info",
		LogFile:  "",
	}
}

// ConfigPath returns the configuration file path for dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// LoadConfig reads the configuration file at path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		apply(&cfg, key, value)
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: scan %s: %w", path, err)
	}

	return cfg, nil
}

// parseKeyValue splits a line on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func apply(cfg *Config, key, value string) {
	switch key {
	case "datadir":
		cfg.DataDir = value
	case "index":
		cfg.Index = value
	case "hash":
		cfg.Hash = value
	case "loglevel":
		cfg.LogLevel = value
	case "logfile":
		cfg.LogFile = value
	}
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	var b strings.Builder
	b.WriteString("# Hashstore Configuration\n\n")
	b.WriteString("# Storage root holding the index and cache/ directory.\n")
	fmt.Fprintf(&b, "datadir = %s\n\n", cfg.DataDir)
	b.WriteString("# Index backend: json or bolt.\n")
	fmt.Fprintf(&b, "index = %s\n\n", cfg.Index)
	b.WriteString("# Key hash: md5, blake2b or blake3. Changing it orphans existing values.\n")
	fmt.Fprintf(&b, "hash = %s\n\n", cfg.Hash)
	b.WriteString("# Log level: debug, info, warn or error.\n")
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
