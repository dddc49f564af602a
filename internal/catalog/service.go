// Package catalog implements the photo catalog: record creation, upload
// paths, listing, lookup, and deletion. It owns the synchronous half of
// the ingestion pipeline; enrichment happens asynchronously behind the
// queue.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"photobucket/internal/ids"
	"photobucket/internal/metastore"
	"photobucket/internal/models"
	"photobucket/internal/queue"
)

var (
	// ErrValidation marks bad caller input; never retried.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound marks a missing record, including records owned by
	// someone else: cross-owner keys simply miss.
	ErrNotFound = errors.New("photo not found")
	// ErrStorage marks an object- or table-store failure on a
	// synchronous path.
	ErrStorage = errors.New("storage failure")
)

const (
	presignTTL      = time.Hour
	defaultPageSize = 20
	maxPageSize     = 100
)

// ObjectStore is the blob-store capability the catalog needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Enqueuer hands enrichment jobs to the durable queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.EnrichmentJob) error
}

type Service struct {
	photos  metastore.PhotoStore
	objects ObjectStore
	jobs    Enqueuer
	log     zerolog.Logger
}

func NewService(photos metastore.PhotoStore, objects ObjectStore, jobs Enqueuer, log zerolog.Logger) *Service {
	return &Service{
		photos:  photos,
		objects: objects,
		jobs:    jobs,
		log:     log,
	}
}

type BeginUploadResult struct {
	Photo     models.Photo
	UploadURL string
}

// BeginUpload creates a pending record and issues a presigned PUT URL
// for the client to upload bytes directly. Enrichment is triggered by
// CompleteUpload once the out-of-band upload finishes.
func (s *Service) BeginUpload(ctx context.Context, ownerID, filename, contentType string) (BeginUploadResult, error) {
	if ownerID == "" || filename == "" || contentType == "" {
		return BeginUploadResult{}, fmt.Errorf("%w: owner, filename and content type are required", ErrValidation)
	}

	photo := s.newRecord(ownerID, filename)
	if err := s.photos.Put(ctx, photo); err != nil {
		return BeginUploadResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	uploadURL, err := s.objects.PresignPut(ctx, photo.ObjectKey, contentType, presignTTL)
	if err != nil {
		return BeginUploadResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.log.Info().
		Str("photo_id", photo.PhotoID).
		Str("owner", ownerID).
		Msg("upload url issued")

	return BeginUploadResult{Photo: photo, UploadURL: uploadURL}, nil
}

// CompleteUpload confirms that a presign-path upload finished and
// enqueues enrichment. Both upload paths converge here on exactly one
// enqueue per record; confirming a record already past pending is a
// no-op so repeated confirmations stay harmless.
func (s *Service) CompleteUpload(ctx context.Context, ownerID, lookupKey string) (models.Photo, error) {
	photo, err := s.GetByLookupKey(ctx, ownerID, lookupKey)
	if err != nil {
		return models.Photo{}, err
	}

	if photo.Status != models.PhotoStatusPending {
		return photo, nil
	}

	if err := s.enqueue(ctx, photo); err != nil {
		return models.Photo{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return photo, nil
}

type UploadResult struct {
	Photo   models.Photo
	ViewURL string
}

// UploadDirect stores the bytes, writes a pending record, enqueues
// enrichment, and returns a presigned GET URL for immediate display.
func (s *Service) UploadDirect(ctx context.Context, ownerID string, data []byte, filename, contentType string) (UploadResult, error) {
	if ownerID == "" || filename == "" {
		return UploadResult{}, fmt.Errorf("%w: owner and filename are required", ErrValidation)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return UploadResult{}, fmt.Errorf("%w: content type must be an image", ErrValidation)
	}
	if len(data) == 0 {
		return UploadResult{}, fmt.Errorf("%w: empty image payload", ErrValidation)
	}

	photo := s.newRecord(ownerID, filename)

	if err := s.objects.Put(ctx, photo.ObjectKey, data, contentType); err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.photos.Put(ctx, photo); err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := s.enqueue(ctx, photo); err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	viewURL, err := s.objects.PresignGet(ctx, photo.ObjectKey, presignTTL)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.log.Info().
		Str("photo_id", photo.PhotoID).
		Str("owner", ownerID).
		Int("size_bytes", len(data)).
		Msg("photo uploaded")

	return UploadResult{Photo: photo, ViewURL: viewURL}, nil
}

type PhotoPage struct {
	Photos        []models.Photo
	NextPageToken string
}

// ListPhotos pages through the owner's partition newest first. The page
// token is the store's continuation key, passed through opaquely.
func (s *Service) ListPhotos(ctx context.Context, ownerID string, pageSize int, pageToken string) (PhotoPage, error) {
	if ownerID == "" {
		return PhotoPage{}, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	page, err := s.photos.List(ctx, ownerID, int32(pageSize), pageToken)
	if err != nil {
		return PhotoPage{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return PhotoPage{Photos: page.Photos, NextPageToken: page.NextCursor}, nil
}

// GetByLookupKey resolves a photo by its composite key. Lookups are
// always scoped by owner as part of the key.
func (s *Service) GetByLookupKey(ctx context.Context, ownerID, lookupKey string) (models.Photo, error) {
	if ownerID == "" || lookupKey == "" {
		return models.Photo{}, fmt.Errorf("%w: owner and lookup key are required", ErrValidation)
	}

	photo, err := s.photos.Get(ctx, ownerID, lookupKey)
	if err != nil {
		if errors.Is(err, metastore.ErrPhotoNotFound) {
			return models.Photo{}, ErrNotFound
		}
		return models.Photo{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return photo, nil
}

// GetPhotoURL issues a fresh presigned GET URL for an owned photo.
func (s *Service) GetPhotoURL(ctx context.Context, ownerID, lookupKey string) (string, error) {
	photo, err := s.GetByLookupKey(ctx, ownerID, lookupKey)
	if err != nil {
		return "", err
	}

	viewURL, err := s.objects.PresignGet(ctx, photo.ObjectKey, presignTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return viewURL, nil
}

// DeletePhoto removes the object bytes and the metadata record. Object
// deletion is best effort: blob-store deletes are idempotent and a
// transient failure there must not block metadata cleanup. The return
// value reflects the metadata delete alone.
func (s *Service) DeletePhoto(ctx context.Context, ownerID, lookupKey string) (bool, error) {
	photo, err := s.GetByLookupKey(ctx, ownerID, lookupKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}

	if err := s.objects.Delete(ctx, photo.ObjectKey); err != nil {
		s.log.Warn().
			Err(err).
			Str("photo_id", photo.PhotoID).
			Str("object_key", photo.ObjectKey).
			Msg("object delete failed, continuing with metadata delete")
	}

	deleted, err := s.photos.Delete(ctx, ownerID, lookupKey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !deleted {
		return false, ErrNotFound
	}

	s.log.Info().
		Str("photo_id", photo.PhotoID).
		Str("owner", ownerID).
		Msg("photo deleted")
	return true, nil
}

func (s *Service) newRecord(ownerID, filename string) models.Photo {
	now := time.Now().UTC()
	photoID := ids.NewPhotoID()
	return models.Photo{
		PhotoID:   photoID,
		OwnerID:   ownerID,
		ObjectKey: models.ObjectKeyFor(ownerID, photoID, filename),
		CreatedAt: now.Format(time.RFC3339),
		SortKey:   ids.SortKey(now, photoID),
		Status:    models.PhotoStatusPending,
	}
}

func (s *Service) enqueue(ctx context.Context, photo models.Photo) error {
	return s.jobs.Enqueue(ctx, queue.EnrichmentJob{
		PhotoID:   photo.PhotoID,
		OwnerID:   photo.OwnerID,
		ObjectKey: photo.ObjectKey,
	})
}
