// SignalHouse - Multi-Tenant Analytics Ingestion API
// Copyright 2026 SignalHouse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalhouse/signalhouse

// Command server runs the SignalHouse API: tenant registration, API key
// lifecycle, event collection, cached aggregation, and short URLs, all
// guarded by the key-validation and rate-limit admission pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/signalhouse/signalhouse/internal/api"
	"github.com/signalhouse/signalhouse/internal/apikey"
	"github.com/signalhouse/signalhouse/internal/cache"
	"github.com/signalhouse/signalhouse/internal/config"
	"github.com/signalhouse/signalhouse/internal/logging"
	"github.com/signalhouse/signalhouse/internal/ratelimit"
	"github.com/signalhouse/signalhouse/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(ctx, cfg.Database.URL, &logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := db.ApplySchema(ctx); err != nil {
		return err
	}

	redisClient := connectRedis(ctx, cfg.Redis.URL, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	apps := store.NewAppStore(db)
	keys := store.NewKeyStore(db)
	events := store.NewEventStore(db)
	shortURLs := store.NewShortURLStore(db)

	manager := apikey.NewManager(keys, apps, apikey.Config{
		BcryptCost: cfg.Security.BcryptCost,
		KeyTTL:     cfg.Security.KeyTTL(),
		ScanLimit:  cfg.Security.ValidationScanLimit,
	}, &logger)

	var counterStore ratelimit.CounterStore
	var cacheStore cache.Store
	var redisPing api.Pinger
	if redisClient != nil {
		counterStore = ratelimit.NewRedisCounterStore(redisClient)
		cacheStore = cache.NewRedisStore(redisClient)
		redisPing = redisPinger{client: redisClient}
	}

	limiter := ratelimit.New(counterStore, ratelimit.Config{
		Max:        cfg.Security.RateLimitMax,
		Window:     cfg.Security.RateLimitWindow(),
		FailClosed: cfg.Security.RateLimitFailClosed,
	}, &logger)

	summaryCache := cache.New(cacheStore, &logger)

	handler := api.NewHandler(api.HandlerConfig{
		Apps:       apps,
		Keys:       manager,
		KeyReader:  keys,
		Events:     events,
		ShortURLs:  shortURLs,
		Cache:      summaryCache,
		SummaryTTL: cfg.Cache.SummaryTTL,
		DB:         db,
		Redis:      redisPing,
	})

	router := api.NewRouter(handler, limiter, api.RouterConfig{
		CORSOrigins:       cfg.Server.CORSOrigins,
		IPRateLimitMax:    cfg.Security.IPRateLimitMax,
		IPRateLimitWindow: cfg.Security.IPRateLimitWindow,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("SignalHouse listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}

// connectRedis opens the shared Redis client. Redis is a soft dependency:
// a bad URL or unreachable server logs a warning and returns nil, and the
// limiter and cache run in their degraded local modes.
func connectRedis(ctx context.Context, url string, logger *zerolog.Logger) *redis.Client {
	if url == "" {
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid Redis URL, running without shared store")
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unreachable, running without shared store")
	}
	return client
}

// redisPinger adapts the Redis client to the health check interface.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
