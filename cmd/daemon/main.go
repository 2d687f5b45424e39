// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewindtv/rewind/internal/api"
	"github.com/rewindtv/rewind/internal/auth"
	"github.com/rewindtv/rewind/internal/cache"
	"github.com/rewindtv/rewind/internal/config"
	"github.com/rewindtv/rewind/internal/helix"
	rwlog "github.com/rewindtv/rewind/internal/log"
	"github.com/rewindtv/rewind/internal/telemetry"
)

var (
	version   = "v0.4.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded.
	rwlog.Configure(rwlog.Config{
		Level:   "info",
		Service: "rewind",
		Version: version,
	})
	logger := rwlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().
			Err(err).
			Str(rwlog.FieldEvent, "config.invalid").
			Msg("failed to load configuration")
	}

	rwlog.SetLevel(cfg.LogLevel)

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    "rewind",
		ServiceVersion: version,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rwlog.FieldEvent, "telemetry.init_failed").
			Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	store, err := buildStore(cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rwlog.FieldEvent, "cache.init_failed").
			Msg("failed to initialize cache backend")
	}

	client := helix.New(helix.Options{
		BaseURL:  cfg.HelixURL,
		ClientID: cfg.ClientID,
		Store:    store,
		Timeout:  cfg.RequestTimeout,
		RPS:      cfg.UpstreamRPS,
		Burst:    cfg.UpstreamBurst,
	})
	oauth := auth.NewService(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, cfg.OAuthURL)

	server := api.New(cfg, client, oauth, store)

	logger.Info().
		Str(rwlog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.ListenAddr).
		Str("cache_backend", string(cfg.CacheBackend)).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("starting rewind")

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	logger.Info().Msg("server exiting")
}

// buildStore selects the cache backend from configuration.
func buildStore(cfg config.AppConfig) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.CacheTTL, rwlog.WithComponent("cache"))
	default:
		return cache.NewMemoryStore(cfg.CacheTTL), nil
	}
}
