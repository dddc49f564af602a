package models

import "fmt"

type PhotoStatus string

const (
	PhotoStatusPending    PhotoStatus = "pending"
	PhotoStatusProcessing PhotoStatus = "processing"
	PhotoStatusCompleted  PhotoStatus = "completed"
	PhotoStatusFailed     PhotoStatus = "failed"
)

// Photo is the durable unit of state for one uploaded image. SortKey is
// the externally exposed lookup key; everything else the API returns is
// derived from these fields.
type Photo struct {
	PhotoID         string      `dynamodbav:"photoId" json:"photoId"`
	OwnerID         string      `dynamodbav:"ownerId" json:"ownerId"`
	ObjectKey       string      `dynamodbav:"objectKey" json:"objectKey"`
	CreatedAt       string      `dynamodbav:"createdAt" json:"createdAt"`
	SortKey         string      `dynamodbav:"SK" json:"lookupKey"`
	Status          PhotoStatus `dynamodbav:"status" json:"status"`
	Title           string      `dynamodbav:"title,omitempty" json:"title,omitempty"`
	Description     string      `dynamodbav:"description,omitempty" json:"description,omitempty"`
	ProcessingError string      `dynamodbav:"processingError,omitempty" json:"processingError,omitempty"`
}

// ObjectKeyFor derives the object-store key for a photo. The layout is
// stable so the key never has to be stored anywhere but the record.
func ObjectKeyFor(ownerID, photoID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", ownerID, photoID, filename)
}
