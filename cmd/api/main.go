package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"photobucket/internal/catalog"
	"photobucket/internal/config"
	"photobucket/internal/handlers"
	"photobucket/internal/jobs"
	"photobucket/internal/log"
	"photobucket/internal/metastore"
	"photobucket/internal/queue"
	"photobucket/internal/server"
	"photobucket/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx := context.Background()

	dynamoClient, err := metastore.NewClient(ctx, cfg.Dynamo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init dynamodb client")
	}
	photoStore := metastore.NewDynamoStore(dynamoClient, cfg.Dynamo.Table)

	redisClient, err := queue.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	// The stream handle is built once here and injected everywhere;
	// producers and the worker share the same durable channel.
	if err := queue.EnsureGroup(ctx, redisClient, cfg.Redis.Stream, cfg.Redis.Group, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare enrichment stream")
	}
	producer := queue.NewProducer(redisClient, cfg.Redis.Stream)

	catalogService := catalog.NewService(photoStore, objectStore, producer, logger)
	handlerSet := handlers.NewHandlerSet(logger, cfg, catalogService, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	sweeper := jobs.NewSweeper(photoStore, cfg.Enrich, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("sweeper start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, sweeper, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, sweeper *jobs.Sweeper, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	sweeper.Stop()

	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
