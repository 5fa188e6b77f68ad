package adapter_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/aiarchives/aiarchives/pkg/adapter"
	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/gt"
)

// testCloudStore exercises a provider-backed ObjectStore, including fetching
// the signed URL without credentials.
func testCloudStore(t *testing.T, store adapter.ObjectStore) {
	ctx := context.Background()
	content := "<html><body>cloud round trip ✓</body></html>"

	key, err := store.Store(ctx, model.NewConversationID(), content)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	got, err := store.GetContent(ctx, key)
	gt.NoError(t, err)
	gt.Equal(t, got, content)

	signed, err := store.SignedReadURL(ctx, key, 5*time.Minute)
	gt.NoError(t, err)

	resp, err := http.Get(signed)
	gt.NoError(t, err)
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err)
	gt.Equal(t, string(body), content)

	gt.NoError(t, store.Delete(ctx, key))
	_, err = store.GetContent(ctx, key)
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestS3(t *testing.T) {
	cfg := adapter.S3Config{
		Region:          os.Getenv("TEST_S3_REGION"),
		AccessKeyID:     os.Getenv("TEST_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("TEST_S3_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("TEST_S3_BUCKET"),
		Endpoint:        os.Getenv("TEST_S3_ENDPOINT"),
	}
	if cfg.Validate() != nil {
		t.Skip("TEST_S3_REGION, TEST_S3_ACCESS_KEY_ID, TEST_S3_SECRET_ACCESS_KEY and TEST_S3_BUCKET must be set")
	}

	store, err := adapter.NewS3(context.Background(), cfg)
	gt.NoError(t, err)
	defer store.Close()

	testCloudStore(t, store)
}

func TestGCS(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET is not set")
	}

	store, err := adapter.NewGCS(context.Background(), bucket)
	gt.NoError(t, err)
	defer store.Close()

	testCloudStore(t, store)
}

func TestS3ConfigValidate(t *testing.T) {
	valid := adapter.S3Config{
		Region:          "us-east-1",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
		BucketName:      "bucket",
	}
	gt.NoError(t, valid.Validate())

	missing := valid
	missing.BucketName = ""
	gt.Error(t, missing.Validate())
}
