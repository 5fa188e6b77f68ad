package conversation

import (
	"context"
	"errors"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Detail is a conversation record with its stored content
type Detail struct {
	Record  *model.ConversationRecord
	Content string
}

// Get retrieves the metadata of a conversation without its content
func (u *UseCase) Get(ctx context.Context, id model.ConversationID) (*model.ConversationRecord, error) {
	return u.repo.GetConversation(ctx, id)
}

// Show retrieves the metadata and the full content of a conversation.
// Returns model.ErrNotFound when no record matches id.
func (u *UseCase) Show(ctx context.Context, id model.ConversationID) (*Detail, error) {
	record, err := u.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	return u.withContent(ctx, record)
}

// View is Show for a human reader: it counts the view before returning.
func (u *UseCase) View(ctx context.Context, id model.ConversationID) (*Detail, error) {
	if err := u.requireStore(); err != nil {
		return nil, err
	}

	record, err := u.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, err
	}

	return u.withContent(ctx, record)
}

func (u *UseCase) withContent(ctx context.Context, record *model.ConversationRecord) (*Detail, error) {
	if err := u.requireStore(); err != nil {
		return nil, err
	}

	content, err := u.store.GetContent(ctx, record.ContentKey)
	if err != nil {
		// The row exists, so a missing blob is a storage fault rather than a 404
		if errors.Is(err, model.ErrNotFound) {
			return nil, goerr.Wrap(model.ErrStorage, "conversation content is missing",
				goerr.V("id", record.ID), goerr.V("key", record.ContentKey))
		}
		return nil, goerr.Wrap(err, "failed to get conversation content",
			goerr.V("id", record.ID), goerr.V("key", record.ContentKey))
	}

	return &Detail{Record: record, Content: content}, nil
}

// SignedURL returns a time-limited URL to the raw content of a conversation
// without fetching the content.
func (u *UseCase) SignedURL(ctx context.Context, id model.ConversationID) (string, error) {
	record, err := u.repo.GetConversation(ctx, id)
	if err != nil {
		return "", err
	}

	if err := u.requireStore(); err != nil {
		return "", err
	}

	url, err := u.store.SignedReadURL(ctx, record.ContentKey, u.urlExpiry)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get signed url", goerr.V("id", id))
	}

	return url, nil
}
