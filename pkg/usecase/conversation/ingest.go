package conversation

import (
	"context"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/aiarchives/aiarchives/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const orphanDeleteTimeout = 10 * time.Second

// IngestInput is a scraped share page submitted for storage
type IngestInput struct {
	HTML  string
	Model string
}

// IngestOutput is the result of a successful ingestion
type IngestOutput struct {
	Record    *model.ConversationRecord
	Permalink string
}

// Ingest stores a scraped share page and returns its permalink.
// 1. Resolve the parser for the model name before touching any store
// 2. Parse the HTML into a Conversation
// 3. Write the content to the object store under a fresh identifier
// 4. Insert the metadata row; on failure delete the orphaned blob
// 5. Build the permalink from the record ID assigned by the metadata store
func (u *UseCase) Ingest(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	modelName := input.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	if err := u.requireStore(); err != nil {
		return nil, err
	}

	p, err := u.parsers.Resolve(modelName)
	if err != nil {
		return nil, err
	}

	conv, err := p.Parse(ctx, input.HTML)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse conversation", goerr.V("model", modelName))
	}

	key, err := u.store.Store(ctx, model.NewConversationID(), conv.Content)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store conversation content", goerr.V("model", conv.Model))
	}

	record, err := u.repo.CreateConversation(ctx, &model.CreateConversationInput{
		Model:           conv.Model,
		ScrapedAt:       conv.ScrapedAt,
		ContentKey:      key,
		SourceHTMLBytes: conv.SourceHTMLBytes,
		Views:           0,
	})
	if err != nil {
		u.deleteOrphan(ctx, key)
		return nil, goerr.Wrap(err, "failed to create conversation record", goerr.V("key", key))
	}

	logging.From(ctx).Info("conversation ingested",
		"id", record.ID,
		"model", record.Model,
		"bytes", record.SourceHTMLBytes,
	)

	return &IngestOutput{
		Record:    record,
		Permalink: u.Permalink(record.ID),
	}, nil
}

// deleteOrphan removes content whose metadata row could not be written. The
// delete must still run when ctx is already cancelled.
func (u *UseCase) deleteOrphan(ctx context.Context, key model.ContentKey) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orphanDeleteTimeout)
	defer cancel()

	if err := u.store.Delete(dctx, key); err != nil {
		logging.From(ctx).Error("failed to delete orphaned content",
			"key", key,
			"error", err,
		)
		return
	}
	logging.From(ctx).Warn("deleted orphaned content after metadata failure", "key", key)
}

// Permalink returns the public URL of the conversation page
func (u *UseCase) Permalink(id model.ConversationID) string {
	return u.baseURL + "/" + PermalinkRoute + "/" + id.String()
}
