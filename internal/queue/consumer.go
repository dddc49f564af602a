package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

// JobHandler processes one delivered enrichment job. Returning an error
// leaves the message pending so the group's reclaim path redelivers it.
type JobHandler interface {
	Handle(ctx context.Context, job EnrichmentJob) error
}

type Consumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	claimInterval time.Duration
	logger        zerolog.Logger
	handler       JobHandler
	sem           chan struct{}
}

// NewConsumer builds a consumer-group reader. maxConcurrent bounds the
// number of in-flight jobs; each one holds a full image buffer, so the
// cap keeps worker memory bounded.
func NewConsumer(client *redis.Client, stream, group string, claimInterval time.Duration, maxConcurrent int, logger zerolog.Logger, handler JobHandler) *Consumer {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Consumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      "worker-" + ksuid.New().String(),
		claimInterval: claimInterval,
		logger:        logger,
		handler:       handler,
		sem:           make(chan struct{}, maxConcurrent),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := EnsureGroup(ctx, c.client, c.stream, c.group, c.logger); err != nil {
		return err
	}

	c.logger.Info().
		Str("stream", c.stream).
		Str("group", c.group).
		Str("consumer", c.consumer).
		Msg("consumer starting")

	ticker := time.NewTicker(c.claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil {
				c.logger.Error().Err(err).Msg("stream read error")
				time.Sleep(2 * time.Second)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = c.claimStalled(ctx)
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.dispatch(ctx, msg)
		}
	}
	return nil
}

// dispatch runs the handler under the concurrency semaphore. A handler
// error leaves the message unacked; ack happens only after success.
func (c *Consumer) dispatch(ctx context.Context, msg redis.XMessage) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	go func() {
		defer func() { <-c.sem }()

		if err := c.handleMessage(ctx, msg); err != nil {
			c.logger.Error().
				Err(err).
				Str("message_id", msg.ID).
				Msg("handle message failed")
			return
		}
		if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
			c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("ack failed")
		}
	}()
}

func (c *Consumer) handleMessage(ctx context.Context, msg redis.XMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	job, err := jobFromValues(msg.Values)
	if err != nil {
		// Malformed payloads can never succeed; ack to drop them.
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed job")
		return c.client.XAck(ctx, c.stream, c.group, msg.ID).Err()
	}
	return c.handler.Handle(ctx, job)
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.Idle < c.claimInterval {
			continue
		}
		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.logger.Error().Err(err).Msg("claim error")
			continue
		}
		for _, msg := range msgs {
			c.dispatch(ctx, msg)
		}
	}
	return nil
}
