package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"photobucket/internal/config"
	"photobucket/internal/enrich"
	"photobucket/internal/log"
	"photobucket/internal/metastore"
	"photobucket/internal/queue"
	"photobucket/internal/storage"
	"photobucket/internal/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := metastore.NewClient(ctx, cfg.Dynamo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init dynamodb client")
	}
	photoStore := metastore.NewDynamoStore(dynamoClient, cfg.Dynamo.Table)

	redisClient, err := queue.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	visionClient := vision.NewClient(cfg.Vision, logger)
	worker := enrich.NewWorker(photoStore, objectStore, visionClient, logger)

	consumer := queue.NewConsumer(
		redisClient,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Enrich.ClaimInterval,
		cfg.Enrich.MaxConcurrent,
		logger,
		worker,
	)

	go func() {
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
