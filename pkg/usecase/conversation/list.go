package conversation

import (
	"context"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// ListOptions contains options for listing conversations
type ListOptions struct {
	Limit  int
	Offset int
}

// Validate checks Limit is in [1, MaxListLimit] and Offset is non-negative
func (x ListOptions) Validate() error {
	if x.Limit < 1 || x.Limit > MaxListLimit {
		return goerr.Wrap(model.ErrValidation, "limit must be an integer between 1 and 100", goerr.V("limit", x.Limit))
	}
	if x.Offset < 0 {
		return goerr.Wrap(model.ErrValidation, "offset must be a non-negative integer", goerr.V("offset", x.Offset))
	}
	return nil
}

// List retrieves a page of conversation records, newest first
func (u *UseCase) List(ctx context.Context, opts ListOptions) ([]*model.ConversationRecord, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return u.repo.ListConversations(ctx, opts.Limit, opts.Offset)
}
