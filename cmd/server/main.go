// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/broadcastmap/internal/api"
	"github.com/tomtom215/broadcastmap/internal/backend"
	"github.com/tomtom215/broadcastmap/internal/broadcast"
	"github.com/tomtom215/broadcastmap/internal/cache"
	"github.com/tomtom215/broadcastmap/internal/captcha"
	"github.com/tomtom215/broadcastmap/internal/config"
	"github.com/tomtom215/broadcastmap/internal/geoip"
	"github.com/tomtom215/broadcastmap/internal/logging"
	"github.com/tomtom215/broadcastmap/internal/maintenance"
	"github.com/tomtom215/broadcastmap/internal/metrics"
	"github.com/tomtom215/broadcastmap/internal/places"
	"github.com/tomtom215/broadcastmap/internal/supervisor"
	"github.com/tomtom215/broadcastmap/internal/supervisor/services"
	ws "github.com/tomtom215/broadcastmap/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("driver", cfg.Database.Driver).
		Int("daily_limit", cfg.Broadcast.DailyLimit).
		Bool("captcha", cfg.Captcha.Enabled()).
		Str("geoip_provider", cfg.GeoIP.Provider).
		Msg("Starting Broadcastmap with supervisor tree")

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing message store")
		}
	}()
	logging.Info().Str("backend", st.Backend()).Msg("Message store initialized")

	lookupCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer func() { _ = lookupCache.Close() }()
	logging.Info().Str("backend", lookupCache.Backend()).Dur("ttl", cfg.Cache.TTL).Msg("Lookup cache initialized")

	wsHub := ws.NewHub()
	service := broadcast.NewService(st, captcha.New(cfg.Captcha), wsHub, cfg.Broadcast.DailyLimit)

	handler := api.NewHandler(api.Dependencies{
		Service: service,
		Store:   st,
		Geo:     geoip.New(cfg.GeoIP, cfg.Places.UserAgent, lookupCache, cfg.Cache.TTL),
		Places:  places.New(cfg.Places, lookupCache, cfg.Cache.TTL),
		Hub:     wsHub,
		Config:  cfg,
		Version: version,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler).SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.New(logging.NewSlogLogger(), supervisor.Config{
		ShutdownTimeout: shutdownTimeout,
	})
	tree.AddBackground(services.NewWebSocketHubService(wsHub))
	if schedule := cfg.Broadcast.MaintenanceSchedule; schedule != "" {
		scheduler, err := maintenance.NewScheduler(st, schedule)
		if err != nil {
			return err
		}
		tree.AddBackground(services.NewMaintenanceService(scheduler))
	} else {
		logging.Info().Msg("Counter maintenance disabled")
	}
	tree.AddAPI(services.NewHTTPServerService(server, server.Addr, shutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	// The channel yields exactly one value and is never closed.
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
	}

	unstopped, _ := tree.Unstopped()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
