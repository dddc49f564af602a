// Package queue carries enrichment jobs between the api and worker
// processes over a Redis Stream. Delivery is at-least-once: messages
// are acked only after the handler succeeds, and stalled pending
// entries are reclaimed by other consumers.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EnrichmentJob is the transient unit of work on the stream. It is
// reconstructed from the photo record at enqueue time and never
// persisted anywhere else.
type EnrichmentJob struct {
	PhotoID    string `json:"photoId"`
	OwnerID    string `json:"ownerId"`
	ObjectKey  string `json:"objectKey"`
	EnqueuedAt string `json:"enqueuedAt"`
}

type Producer struct {
	client *redis.Client
	stream string
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

// Enqueue appends a job to the stream. It returns once Redis has
// accepted the entry; delivery and retry are the consumer group's
// concern.
func (p *Producer) Enqueue(ctx context.Context, job EnrichmentJob) error {
	if job.EnqueuedAt == "" {
		job.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"photoId":    job.PhotoID,
			"ownerId":    job.OwnerID,
			"objectKey":  job.ObjectKey,
			"enqueuedAt": job.EnqueuedAt,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue job for photo %s: %w", job.PhotoID, err)
	}
	return nil
}

// EnsureGroup creates the consumer group at the start of the stream,
// creating the stream itself if needed. Safe to call from every process
// at startup.
func EnsureGroup(ctx context.Context, client *redis.Client, stream, group string, log zerolog.Logger) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	if err == nil {
		log.Info().Str("stream", stream).Str("group", group).Msg("consumer group created")
	}
	return nil
}

func jobFromValues(values map[string]any) (EnrichmentJob, error) {
	job := EnrichmentJob{
		PhotoID:    stringValue(values, "photoId"),
		OwnerID:    stringValue(values, "ownerId"),
		ObjectKey:  stringValue(values, "objectKey"),
		EnqueuedAt: stringValue(values, "enqueuedAt"),
	}
	if job.PhotoID == "" || job.OwnerID == "" || job.ObjectKey == "" {
		return EnrichmentJob{}, fmt.Errorf("malformed job payload: %v", values)
	}
	return job, nil
}

func stringValue(values map[string]any, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}
