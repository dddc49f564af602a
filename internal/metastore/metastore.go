// Package metastore persists photo records in a single DynamoDB table.
//
// The table uses a composite primary key: partition key PK is
// "OWNER#<ownerId>" and sort key SK is "<epochMillis>#<photoId>". All
// reads and writes are scoped to one owner partition, so cross-owner
// access is impossible by construction.
package metastore

import (
	"context"
	"errors"

	"photobucket/internal/models"
)

var ErrPhotoNotFound = errors.New("photo not found")

// Page is one slice of an owner's photo listing. NextCursor is the
// store-native continuation key, already encoded for transport; empty
// means the listing is exhausted.
type Page struct {
	Photos     []models.Photo
	NextCursor string
}

// PhotoStore is the table-store capability the catalog service and the
// enrichment worker consume.
type PhotoStore interface {
	Put(ctx context.Context, photo models.Photo) error
	Get(ctx context.Context, ownerID, sortKey string) (models.Photo, error)
	List(ctx context.Context, ownerID string, limit int32, cursor string) (Page, error)
	FindByPhotoID(ctx context.Context, ownerID, photoID string) (models.Photo, error)
	UpdateStatus(ctx context.Context, ownerID, sortKey string, status models.PhotoStatus, processingError string) error
	UpdateEnrichment(ctx context.Context, ownerID, sortKey, title, description string) error
	Delete(ctx context.Context, ownerID, sortKey string) (bool, error)
}

func partitionKey(ownerID string) string {
	return "OWNER#" + ownerID
}
