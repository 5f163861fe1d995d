package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hongminglow/timecard-be/internal/config"
	"github.com/hongminglow/timecard-be/internal/logging"
	"github.com/hongminglow/timecard-be/internal/server"
	"github.com/hongminglow/timecard-be/internal/storage"
	"github.com/hongminglow/timecard-be/internal/storage/memory"
	"github.com/hongminglow/timecard-be/internal/storage/postgres"
	"github.com/hongminglow/timecard-be/internal/storage/sqlite"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.Logger = logger
	if envErr != nil {
		logger.Debug().Msg("no .env file found; relying on existing environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// openStore is replaced in tests.
var openStore = func(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// run serves until ctx is cancelled or the listener fails. Everything it
// opens is released before it returns.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	redisClient, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage (%s): %w", cfg.StorageDriver, err)
	}
	defer store.Close()

	srv, err := server.New(cfg, server.Deps{Store: store, Redis: redisClient, Log: logger})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("driver", cfg.StorageDriver).Msg("timecard backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
