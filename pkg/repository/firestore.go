package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const conversationCollection = "conversations"

// Firestore implements Repository using Firestore
type Firestore struct {
	client *firestore.Client
	now    func() time.Time
}

var _ Repository = (*Firestore)(nil)

type conversationDoc struct {
	ID              string    `firestore:"id"`
	Model           string    `firestore:"model"`
	ScrapedAt       time.Time `firestore:"scraped_at"`
	ContentKey      string    `firestore:"content_key"`
	SourceHTMLBytes int64     `firestore:"source_html_bytes"`
	Views           int64     `firestore:"views"`
	CreatedAt       time.Time `firestore:"created_at"`
}

func (d *conversationDoc) toModel() *model.ConversationRecord {
	return &model.ConversationRecord{
		ID:              model.ConversationID(d.ID),
		Model:           d.Model,
		ScrapedAt:       d.ScrapedAt.UTC(),
		ContentKey:      model.ContentKey(d.ContentKey),
		SourceHTMLBytes: d.SourceHTMLBytes,
		Views:           d.Views,
		CreatedAt:       d.CreatedAt.UTC(),
	}
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	c := newConfig(opts)

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to create firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}

	return &Firestore{client: client, now: c.now}, nil
}

func (r *Firestore) CreateConversation(ctx context.Context, input *model.CreateConversationInput) (*model.ConversationRecord, error) {
	doc := &conversationDoc{
		ID:              model.NewConversationID().String(),
		Model:           input.Model,
		ScrapedAt:       input.ScrapedAt.UTC(),
		ContentKey:      input.ContentKey.String(),
		SourceHTMLBytes: input.SourceHTMLBytes,
		Views:           input.Views,
		CreatedAt:       r.now().UTC(),
	}

	if _, err := r.client.Collection(conversationCollection).Doc(doc.ID).Create(ctx, doc); err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to create conversation record",
			goerr.V("content_key", input.ContentKey))
	}

	return doc.toModel(), nil
}

func (r *Firestore) GetConversation(ctx context.Context, id model.ConversationID) (*model.ConversationRecord, error) {
	snap, err := r.client.Collection(conversationCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if isMissingDoc(err) {
			return nil, goerr.Wrap(model.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to get conversation record", goerr.V("id", id))
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to decode conversation record", goerr.V("id", id))
	}

	return doc.toModel(), nil
}

func (r *Firestore) ListConversations(ctx context.Context, limit, offset int) ([]*model.ConversationRecord, error) {
	iter := r.client.Collection(conversationCollection).
		OrderBy("created_at", firestore.Desc).
		OrderBy("id", firestore.Desc).
		Offset(offset).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	records := make([]*model.ConversationRecord, 0, limit)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to list conversation records",
				goerr.V("limit", limit), goerr.V("offset", offset))
		}

		var doc conversationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to decode conversation record",
				goerr.V("doc_id", snap.Ref.ID))
		}
		records = append(records, doc.toModel())
	}

	return records, nil
}

func (r *Firestore) IncrementViews(ctx context.Context, id model.ConversationID) (*model.ConversationRecord, error) {
	ref := r.client.Collection(conversationCollection).Doc(id.String())

	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "views", Value: firestore.Increment(1)},
	})
	if err != nil {
		if isMissingDoc(err) {
			return nil, goerr.Wrap(model.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(model.WithKind(model.ErrPersistence, err), "failed to increment views", goerr.V("id", id))
	}

	return r.GetConversation(ctx, id)
}

// isMissingDoc reports whether err means no document can exist under the
// requested ID. Reserved IDs such as "__x__" are rejected with InvalidArgument.
func isMissingDoc(err error) bool {
	switch status.Code(err) {
	case codes.NotFound, codes.InvalidArgument:
		return true
	}
	return false
}

// Migrate is a no-op: Firestore collections are schemaless. The composite
// index on (created_at DESC, id DESC) must be created out of band.
func (r *Firestore) Migrate(ctx context.Context) error {
	return nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}
