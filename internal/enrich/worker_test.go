package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photobucket/internal/metastore"
	"photobucket/internal/models"
	"photobucket/internal/queue"
	"photobucket/internal/vision"
)

type fakeStore struct {
	photos        map[string]*models.Photo // keyed by photoId
	statusWrites  []models.PhotoStatus
	failUpdateErr error
}

func newFakeStore(photos ...*models.Photo) *fakeStore {
	store := &fakeStore{photos: make(map[string]*models.Photo)}
	for _, photo := range photos {
		store.photos[photo.PhotoID] = photo
	}
	return store
}

func (f *fakeStore) Put(_ context.Context, photo models.Photo) error {
	f.photos[photo.PhotoID] = &photo
	return nil
}

func (f *fakeStore) Get(_ context.Context, ownerID, sortKey string) (models.Photo, error) {
	for _, photo := range f.photos {
		if photo.OwnerID == ownerID && photo.SortKey == sortKey {
			return *photo, nil
		}
	}
	return models.Photo{}, metastore.ErrPhotoNotFound
}

func (f *fakeStore) List(_ context.Context, _ string, _ int32, _ string) (metastore.Page, error) {
	return metastore.Page{}, nil
}

func (f *fakeStore) FindByPhotoID(_ context.Context, ownerID, photoID string) (models.Photo, error) {
	photo, ok := f.photos[photoID]
	if !ok || photo.OwnerID != ownerID {
		return models.Photo{}, metastore.ErrPhotoNotFound
	}
	return *photo, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, ownerID, sortKey string, status models.PhotoStatus, processingError string) error {
	if f.failUpdateErr != nil {
		return f.failUpdateErr
	}
	f.statusWrites = append(f.statusWrites, status)
	for _, photo := range f.photos {
		if photo.OwnerID == ownerID && photo.SortKey == sortKey {
			photo.Status = status
			if processingError != "" {
				photo.ProcessingError = processingError
			}
			return nil
		}
	}
	return metastore.ErrPhotoNotFound
}

func (f *fakeStore) UpdateEnrichment(_ context.Context, ownerID, sortKey, title, description string) error {
	for _, photo := range f.photos {
		if photo.OwnerID == ownerID && photo.SortKey == sortKey {
			photo.Status = models.PhotoStatusCompleted
			photo.Title = title
			photo.Description = description
			return nil
		}
	}
	return metastore.ErrPhotoNotFound
}

func (f *fakeStore) Delete(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

type fakeObjects struct {
	data map[string][]byte
	err  error
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[key], nil
}

type fakeVision struct {
	content string
	err     error
	calls   int
}

func (f *fakeVision) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func testPhoto() *models.Photo {
	return &models.Photo{
		PhotoID:   "deadbeefdeadbeef",
		OwnerID:   "alice@example.com",
		ObjectKey: "alice@example.com/deadbeefdeadbeef/sunset.jpg",
		CreatedAt: "2026-08-30T12:00:00Z",
		SortKey:   "1788091200000#deadbeefdeadbeef",
		Status:    models.PhotoStatusPending,
	}
}

func testJob(photo *models.Photo) queue.EnrichmentJob {
	return queue.EnrichmentJob{
		PhotoID:   photo.PhotoID,
		OwnerID:   photo.OwnerID,
		ObjectKey: photo.ObjectKey,
	}
}

func TestHandleCompletesRecord(t *testing.T) {
	photo := testPhoto()
	store := newFakeStore(photo)
	objects := &fakeObjects{data: map[string][]byte{photo.ObjectKey: []byte("jpeg-bytes")}}
	model := &fakeVision{content: `{"title":"Beautiful Sunset","description":"A stunning sunset over the mountains"}`}

	worker := NewWorker(store, objects, model, zerolog.Nop())
	err := worker.Handle(context.Background(), testJob(photo))
	require.NoError(t, err)

	assert.Equal(t, models.PhotoStatusCompleted, photo.Status)
	assert.Equal(t, "Beautiful Sunset", photo.Title)
	assert.Equal(t, "A stunning sunset over the mountains", photo.Description)
	assert.Empty(t, photo.ProcessingError)

	// processing was persisted before the model call
	require.NotEmpty(t, store.statusWrites)
	assert.Equal(t, models.PhotoStatusProcessing, store.statusWrites[0])
}

func TestHandleProviderFailureMarksFailed(t *testing.T) {
	photo := testPhoto()
	store := newFakeStore(photo)
	objects := &fakeObjects{data: map[string][]byte{photo.ObjectKey: []byte("jpeg-bytes")}}
	model := &fakeVision{err: fmt.Errorf("%w: status 401: unauthorized", vision.ErrExternalService)}

	worker := NewWorker(store, objects, model, zerolog.Nop())
	err := worker.Handle(context.Background(), testJob(photo))
	require.Error(t, err)

	assert.Equal(t, models.PhotoStatusFailed, photo.Status)
	assert.Contains(t, photo.ProcessingError, "401")
	assert.NotEmpty(t, photo.ProcessingError)
}

func TestHandleMalformedModelOutputFallsBack(t *testing.T) {
	photo := testPhoto()
	store := newFakeStore(photo)
	objects := &fakeObjects{data: map[string][]byte{photo.ObjectKey: []byte("jpeg-bytes")}}
	model := &fakeVision{content: "sorry, I cannot produce JSON today"}

	worker := NewWorker(store, objects, model, zerolog.Nop())
	err := worker.Handle(context.Background(), testJob(photo))
	require.NoError(t, err)

	assert.Equal(t, models.PhotoStatusCompleted, photo.Status)
	assert.Equal(t, "AI Generated Title for deadbeefdeadbeef", photo.Title)
	assert.Equal(t, "AI-generated description for this photo", photo.Description)
}

func TestHandleTruncatesLongFields(t *testing.T) {
	photo := testPhoto()
	store := newFakeStore(photo)
	objects := &fakeObjects{data: map[string][]byte{photo.ObjectKey: []byte("jpeg-bytes")}}

	longTitle := strings.Repeat("t", 100)
	longDescription := strings.Repeat("d", 200)
	model := &fakeVision{content: fmt.Sprintf(`{"title":%q,"description":%q}`, longTitle, longDescription)}

	worker := NewWorker(store, objects, model, zerolog.Nop())
	err := worker.Handle(context.Background(), testJob(photo))
	require.NoError(t, err)

	assert.LessOrEqual(t, len([]rune(photo.Title)), 60)
	assert.True(t, strings.HasSuffix(photo.Title, "..."))
	assert.LessOrEqual(t, len([]rune(photo.Description)), 160)
	assert.True(t, strings.HasSuffix(photo.Description, "..."))
}

func TestHandleMissingRecordAborts(t *testing.T) {
	store := newFakeStore()
	objects := &fakeObjects{}
	model := &fakeVision{}

	worker := NewWorker(store, objects, model, zerolog.Nop())
	err := worker.Handle(context.Background(), queue.EnrichmentJob{
		PhotoID:   "deadbeefdeadbeef",
		OwnerID:   "alice@example.com",
		ObjectKey: "alice@example.com/deadbeefdeadbeef/sunset.jpg",
	})

	require.ErrorIs(t, err, metastore.ErrPhotoNotFound)
	assert.Empty(t, store.statusWrites)
	assert.Zero(t, model.calls)
}

func TestHandleSkipsTerminalRecord(t *testing.T) {
	photo := testPhoto()
	photo.Status = models.PhotoStatusCompleted
	photo.Title = "already done"
	store := newFakeStore(photo)
	model := &fakeVision{content: `{"title":"new","description":"new"}`}

	worker := NewWorker(store, &fakeObjects{}, model, zerolog.Nop())
	err := worker.Handle(context.Background(), testJob(photo))
	require.NoError(t, err)

	assert.Equal(t, "already done", photo.Title)
	assert.Zero(t, model.calls)
}

func TestHandleObjectFetchFailureMarksFailed(t *testing.T) {
	photo := testPhoto()
	store := newFakeStore(photo)
	objects := &fakeObjects{err: errors.New("no such key")}
	model := &fakeVision{}

	worker := NewWorker(store, objects, model, zerolog.Nop())
	err := worker.Handle(context.Background(), testJob(photo))
	require.Error(t, err)

	assert.Equal(t, models.PhotoStatusFailed, photo.Status)
	assert.Contains(t, photo.ProcessingError, "failed to retrieve image")
	assert.Zero(t, model.calls)
}

func TestHandleEmptyObjectMarksFailed(t *testing.T) {
	photo := testPhoto()
	store := newFakeStore(photo)
	objects := &fakeObjects{data: map[string][]byte{}}
	model := &fakeVision{}

	worker := NewWorker(store, objects, model, zerolog.Nop())
	err := worker.Handle(context.Background(), testJob(photo))
	require.Error(t, err)

	assert.Equal(t, models.PhotoStatusFailed, photo.Status)
	assert.Zero(t, model.calls)
}
