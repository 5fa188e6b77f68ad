package adapter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	bolt "go.etcd.io/bbolt"
)

var blobBucket = []byte("conversations")

// SelfServedStore is an ObjectStore whose signed URLs point back at this
// service. The HTTP layer serves them on BlobPathPrefix.
type SelfServedStore interface {
	ObjectStore

	// VerifySignedURL validates the query values of a URL issued by SignedReadURL
	VerifySignedURL(key model.ContentKey, expires, signature string) error
}

// boltStore implements SelfServedStore on an embedded bbolt file. It is meant
// for local development and single-node deployments.
type boltStore struct {
	db     *bolt.DB
	signer *URLSigner
}

// NewBolt opens (or creates) the bbolt file at path
func NewBolt(path string, signer *URLSigner) (SelfServedStore, error) {
	if path == "" {
		return nil, goerr.Wrap(model.ErrStorage, "bolt path is required")
	}
	if signer == nil {
		return nil, goerr.Wrap(model.ErrStorage, "url signer is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to create bolt directory", goerr.V("path", path))
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to open bolt db", goerr.V("path", path))
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blobBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to create bolt bucket")
	}

	return &boltStore{db: db, signer: signer}, nil
}

func (s *boltStore) Store(ctx context.Context, id model.ConversationID, content string) (model.ContentKey, error) {
	key := model.NewContentKey(id)

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blobBucket).Put([]byte(key), []byte(content))
	})
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to put blob", goerr.V("key", key))
	}

	return key, nil
}

func (s *boltStore) GetContent(ctx context.Context, key model.ContentKey) (string, error) {
	var (
		content string
		found   bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		// Seek instead of Get: Get cannot tell an empty blob from a missing key.
		// The value is only valid inside the transaction; string() copies it.
		k, v := tx.Bucket(blobBucket).Cursor().Seek([]byte(key))
		if k != nil && bytes.Equal(k, []byte(key)) {
			content = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to get blob", goerr.V("key", key))
	}
	if !found {
		return "", goerr.Wrap(model.ErrNotFound, "content not found", goerr.V("key", key))
	}

	return content, nil
}

func (s *boltStore) SignedReadURL(ctx context.Context, key model.ContentKey, expiry time.Duration) (string, error) {
	return s.signer.Sign(key, expiry), nil
}

func (s *boltStore) VerifySignedURL(key model.ContentKey, expires, signature string) error {
	return s.signer.Verify(key, expires, signature)
}

func (s *boltStore) Delete(ctx context.Context, key model.ContentKey) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blobBucket).Delete([]byte(key))
	})
	if err != nil {
		return goerr.Wrap(model.WithKind(model.ErrStorage, err), "failed to delete blob", goerr.V("key", key))
	}
	return nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
