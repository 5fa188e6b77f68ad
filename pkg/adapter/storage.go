package adapter

import (
	"context"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
)

// DefaultSignedURLExpiry is used when SignedReadURL gets a non-positive expiry
const DefaultSignedURLExpiry = time.Hour

const htmlContentType = "text/html"

// ObjectStore is the interface for conversation content storage
type ObjectStore interface {
	// Store writes content under the key derived from id and returns the key
	Store(ctx context.Context, id model.ConversationID, content string) (model.ContentKey, error)

	// GetContent reads back the full content at key
	GetContent(ctx context.Context, key model.ContentKey) (string, error)

	// SignedReadURL returns a time-limited URL granting read access to key
	SignedReadURL(ctx context.Context, key model.ContentKey, expiry time.Duration) (string, error)

	// Delete removes the content at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key model.ContentKey) error

	// Close releases the underlying client
	Close() error
}

func normalizeExpiry(expiry time.Duration) time.Duration {
	if expiry <= 0 {
		return DefaultSignedURLExpiry
	}
	return expiry
}
