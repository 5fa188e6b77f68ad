package conversation

import (
	"strings"
	"time"

	"github.com/aiarchives/aiarchives/pkg/adapter"
	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/aiarchives/aiarchives/pkg/parser"
	"github.com/aiarchives/aiarchives/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultModel is used when the submission carries no model name
	DefaultModel = "ChatGPT"

	// PermalinkRoute is the path segment of conversation permalinks
	PermalinkRoute = "conversation"

	DefaultListLimit = 50
	MaxListLimit     = 100
)

// UseCase provides conversation ingestion and retrieval
type UseCase struct {
	repo      repository.Repository
	store     adapter.ObjectStore
	parsers   *parser.Registry
	baseURL   string
	urlExpiry time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithSignedURLExpiry sets the lifetime of URLs returned by SignedURL
func WithSignedURLExpiry(expiry time.Duration) Option {
	return func(uc *UseCase) {
		uc.urlExpiry = expiry
	}
}

// New creates a new conversation UseCase instance. baseURL is the public
// origin used to build permalinks. store may be nil for metadata-only use
// (Get, List); operations touching content then fail with model.ErrStorage.
func New(
	repo repository.Repository,
	store adapter.ObjectStore,
	parsers *parser.Registry,
	baseURL string,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:      repo,
		store:     store,
		parsers:   parsers,
		baseURL:   strings.TrimRight(baseURL, "/"),
		urlExpiry: adapter.DefaultSignedURLExpiry,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (u *UseCase) requireStore() error {
	if u.store == nil {
		return goerr.Wrap(model.ErrStorage, "object store is not configured")
	}
	return nil
}
