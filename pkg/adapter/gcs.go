package adapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// gcsStore implements ObjectStore using Cloud Storage
type gcsStore struct {
	bucketName string
	client     *storage.Client
}

// NewGCS creates a new Cloud Storage backed ObjectStore. Signed URLs are V4
// signed with the credentials the client was created with.
func NewGCS(ctx context.Context, bucketName string, opts ...option.ClientOption) (ObjectStore, error) {
	if bucketName == "" {
		return nil, goerr.Wrap(model.ErrStorage, "bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to create storage client")
	}

	return &gcsStore{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *gcsStore) Store(ctx context.Context, id model.ConversationID, content string) (model.ContentKey, error) {
	key := model.NewContentKey(id)
	obj := s.client.Bucket(s.bucketName).Object(key.String())

	writer := obj.NewWriter(ctx)
	writer.ContentType = htmlContentType

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to write to storage", goerr.V("key", key))
	}
	if err := writer.Close(); err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to close storage writer", goerr.V("key", key))
	}

	return key, nil
}

func (s *gcsStore) GetContent(ctx context.Context, key model.ContentKey) (string, error) {
	obj := s.client.Bucket(s.bucketName).Object(key.String())
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", goerr.Wrap(model.ErrNotFound, "content not found", goerr.V("key", key))
		}
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to read from storage", goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to read object body", goerr.V("key", key))
	}

	return string(data), nil
}

func (s *gcsStore) SignedReadURL(ctx context.Context, key model.ContentKey, expiry time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucketName).SignedURL(key.String(), &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(normalizeExpiry(expiry)),
	})
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to sign URL", goerr.V("key", key))
	}

	return url, nil
}

func (s *gcsStore) Delete(ctx context.Context, key model.ContentKey) error {
	err := s.client.Bucket(s.bucketName).Object(key.String()).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to delete from storage", goerr.V("key", key))
	}
	return nil
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
