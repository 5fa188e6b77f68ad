package model

import (
	"time"

	"github.com/google/uuid"
)

type ConversationID string

// NewConversationID generates a new unique ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

func (x ConversationID) String() string { return string(x) }

// ContentKey is an opaque reference to a blob in the object store
type ContentKey string

// NewContentKey derives the object key where the raw HTML of a conversation is stored
func NewContentKey(id ConversationID) ContentKey {
	return ContentKey("conversations/" + string(id) + ".html")
}

func (x ContentKey) String() string { return string(x) }

// Conversation is the parsed representation of a scraped share page. It is
// never persisted as a unit: Content goes to the object store and the rest to
// the metadata store.
type Conversation struct {
	Model           string
	Content         string
	ScrapedAt       time.Time
	SourceHTMLBytes int64
}

// ConversationRecord is the persisted metadata of a stored conversation
type ConversationRecord struct {
	ID              ConversationID `json:"id"`
	Model           string         `json:"model"`
	ScrapedAt       time.Time      `json:"scrapedAt"`
	ContentKey      ContentKey     `json:"contentKey"`
	SourceHTMLBytes int64          `json:"sourceHtmlBytes"`
	Views           int64          `json:"views"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// CreateConversationInput holds the fields of a new ConversationRecord that are
// supplied by the caller. ID and CreatedAt are assigned by the metadata store.
type CreateConversationInput struct {
	Model           string
	ScrapedAt       time.Time
	ContentKey      ContentKey
	SourceHTMLBytes int64
	Views           int64
}
