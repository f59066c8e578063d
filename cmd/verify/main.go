// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

// Command verify checks a deployed message store. It reads the same
// configuration as the server, runs the checks in package verify and exits
// non-zero when any of them fail.
//
//	verify [-config path/to/config.yaml] [-timeout 1m]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/broadcastmap/internal/backend"
	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/verify"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides CONFIG_PATH)")
	timeout := flag.Duration("timeout", time.Minute, "overall time limit")
	flag.Parse()

	if *configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "set CONFIG_PATH: %v\n", err)
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(2)
	}
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	os.Exit(run(cfg, *timeout))
}

func run(cfg *config.Config, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := backend.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	inspector, ok := st.(verify.Inspector)
	if !ok {
		fmt.Fprintf(os.Stderr, "backend %s does not support verification\n", st.Backend())
		return 1
	}

	report := verify.Run(ctx, inspector)
	report.Print(os.Stdout)
	if report.Failed() > 0 {
		return 1
	}
	return 0
}
