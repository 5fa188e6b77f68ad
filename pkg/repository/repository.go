package repository

import (
	"context"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
)

// Repository defines the interface for conversation metadata persistence
type Repository interface {
	// CreateConversation inserts a record and returns it with the store-assigned ID and CreatedAt
	CreateConversation(ctx context.Context, input *model.CreateConversationInput) (*model.ConversationRecord, error)

	// GetConversation retrieves a record by ID. Returns model.ErrNotFound if it does not exist.
	GetConversation(ctx context.Context, id model.ConversationID) (*model.ConversationRecord, error)

	// ListConversations retrieves records ordered by CreatedAt descending.
	// limit and offset are validated by the caller.
	ListConversations(ctx context.Context, limit, offset int) ([]*model.ConversationRecord, error)

	// IncrementViews adds one to the view counter and returns the updated record
	IncrementViews(ctx context.Context, id model.ConversationID) (*model.ConversationRecord, error)

	// Migrate prepares the schema of the backing store
	Migrate(ctx context.Context) error

	// Close releases the connection pool
	Close() error
}

type config struct {
	now          func() time.Time
	maxOpenConns int
}

func newConfig(opts []Option) *config {
	cfg := &config{
		now:          time.Now,
		maxOpenConns: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option is a functional option for repository constructors
type Option func(*config)

// WithClock replaces time.Now used to assign CreatedAt
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithMaxOpenConns sets the size of the connection pool of SQL backends
func WithMaxOpenConns(n int) Option {
	return func(c *config) {
		c.maxOpenConns = n
	}
}
