// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvFiles are read, in order, before environment variables are loaded.
// Variables already present in the process environment are never overwritten.
var DotEnvFiles = []string{".env.local", ".env"}

// loadDotEnv populates the process environment from local .env files.
// It is a no-op when ENVIRONMENT is production.
func loadDotEnv() {
	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "production", "prod":
		return
	}

	for _, path := range DotEnvFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// godotenv.Load does not override existing variables.
		_ = godotenv.Load(path)
	}
}
