// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

// ResolveDataDir picks the data directory with decreasing priority:
//  1. the --dir flag
//  2. the HASHSTORE_DIR environment variable
//  3. fallback (usually the configured or default data directory)
func ResolveDataDir(flagDir string, env map[string]string, fallback string) string {
	if flagDir != "" {
		return flagDir
	}
	if v, ok := env[EnvDataDir]; ok && v != "" {
		return v
	}
	return fallback
}
