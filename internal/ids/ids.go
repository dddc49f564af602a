// Package ids generates the identifiers exposed by the photo API.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewPhotoID returns 8 random bytes hex-encoded: 16 lowercase hex
// characters. The 64-bit space makes collisions negligible; the store
// does not guard against them beyond last-writer-wins.
func NewPhotoID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("ids: read random: %v", err))
	}
	return hex.EncodeToString(buf)
}

// SortKey builds the composite sort key for a photo record. Millisecond
// precision keeps lexicographic order aligned with creation order, and
// the embedded photo id makes the key unique within an owner partition.
func SortKey(createdAt time.Time, photoID string) string {
	return fmt.Sprintf("%d#%s", createdAt.UnixMilli(), photoID)
}
