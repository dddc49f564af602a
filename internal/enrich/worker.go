// Package enrich consumes enrichment jobs and drives each photo record
// through its status machine: pending -> processing -> completed|failed.
// The worker performs no retries of its own; returning an error leaves
// the message on the stream for the queue's redelivery to re-attempt.
package enrich

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"photobucket/internal/metastore"
	"photobucket/internal/models"
	"photobucket/internal/queue"
)

const (
	maxTitleLen       = 60
	maxDescriptionLen = 160
)

// ObjectStore is the slice of the blob store the worker needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// VisionClient produces raw model output for a base64-encoded image.
type VisionClient interface {
	Complete(ctx context.Context, imageBase64 string) (string, error)
}

type Worker struct {
	photos  metastore.PhotoStore
	objects ObjectStore
	vision  VisionClient
	log     zerolog.Logger
}

func NewWorker(photos metastore.PhotoStore, objects ObjectStore, vision VisionClient, log zerolog.Logger) *Worker {
	return &Worker{
		photos:  photos,
		objects: objects,
		vision:  vision,
		log:     log,
	}
}

// Handle processes one delivered job. Every step persists its state
// transition, so status lookups reflect the latest known state even if
// the process dies mid-job. Steps after the record resolution mark the
// record failed before the error propagates to the queue.
func (w *Worker) Handle(ctx context.Context, job queue.EnrichmentJob) error {
	photo, err := w.photos.FindByPhotoID(ctx, job.OwnerID, job.PhotoID)
	if err != nil {
		// The record may have been deleted while the job was in
		// flight; nothing to update, let redelivery policy decide.
		return fmt.Errorf("photo %s not found for owner: %w", job.PhotoID, err)
	}

	if photo.Status == models.PhotoStatusCompleted || photo.Status == models.PhotoStatusFailed {
		// Redelivered job for a record already in a terminal state;
		// transitions never leave completed or failed.
		w.log.Debug().
			Str("photo_id", photo.PhotoID).
			Str("status", string(photo.Status)).
			Msg("skipping job for terminal record")
		return nil
	}

	if err := w.enrich(ctx, job, photo); err != nil {
		if updErr := w.photos.UpdateStatus(ctx, photo.OwnerID, photo.SortKey, models.PhotoStatusFailed, err.Error()); updErr != nil {
			w.log.Error().
				Err(updErr).
				Str("photo_id", photo.PhotoID).
				Msg("failed to record failure status")
		}
		return err
	}

	w.log.Info().
		Str("photo_id", photo.PhotoID).
		Str("owner", photo.OwnerID).
		Msg("enrichment completed")
	return nil
}

func (w *Worker) enrich(ctx context.Context, job queue.EnrichmentJob, photo models.Photo) error {
	if err := w.photos.UpdateStatus(ctx, photo.OwnerID, photo.SortKey, models.PhotoStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	data, err := w.objects.Get(ctx, job.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to retrieve image: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("failed to retrieve image: empty object %s", job.ObjectKey)
	}

	content, err := w.vision.Complete(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return err
	}

	title, description := parseContent(content, photo.PhotoID, w.log)

	if err := w.photos.UpdateEnrichment(ctx, photo.OwnerID, photo.SortKey, title, description); err != nil {
		return fmt.Errorf("persist enrichment: %w", err)
	}
	return nil
}

type aiContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// parseContent extracts title and description from the model output.
// Malformed JSON or missing fields fall back to deterministic
// placeholders instead of failing the job: a model formatting slip must
// not block the pipeline.
func parseContent(content, photoID string, log zerolog.Logger) (string, string) {
	var parsed aiContent
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || parsed.Title == "" || parsed.Description == "" {
		log.Warn().
			Str("photo_id", photoID).
			Str("raw", content).
			Msg("unparseable model output, using placeholders")
		return placeholderTitle(photoID), placeholderDescription()
	}

	title := truncate(strings.TrimSpace(parsed.Title), maxTitleLen)
	description := truncate(strings.TrimSpace(parsed.Description), maxDescriptionLen)
	return title, description
}

func placeholderTitle(photoID string) string {
	return "AI Generated Title for " + photoID
}

func placeholderDescription() string {
	return "AI-generated description for this photo"
}

// truncate clips s to max characters, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
