package adapter_test

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aiarchives/aiarchives/pkg/adapter"
	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/gt"
)

func newBoltStore(t *testing.T) adapter.SelfServedStore {
	t.Helper()
	signer, err := adapter.NewURLSigner([]byte("test-secret"), "http://localhost:8080/")
	gt.NoError(t, err)

	store, err := adapter.NewBolt(filepath.Join(t.TempDir(), "blobs", "store.db"), signer)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)

	testCases := []struct {
		name    string
		content string
	}{
		{"html", "<html><body>hi</body></html>"},
		{"empty", ""},
		{"multibyte", "こんにちは、世界 🌏"},
		{"large", strings.Repeat("<p>0123456789abcdef</p>\n", 200_000)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id := model.NewConversationID()
			key, err := store.Store(ctx, id, tc.content)
			gt.NoError(t, err)
			gt.Equal(t, key, model.NewContentKey(id))

			got, err := store.GetContent(ctx, key)
			gt.NoError(t, err)
			gt.True(t, got == tc.content)
		})
	}
}

func TestBoltGetContentNotFound(t *testing.T) {
	store := newBoltStore(t)

	_, err := store.GetContent(context.Background(), model.ContentKey("conversations/missing.html"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestBoltDelete(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)

	key, err := store.Store(ctx, model.NewConversationID(), "<p>bye</p>")
	gt.NoError(t, err)

	gt.NoError(t, store.Delete(ctx, key))
	_, err = store.GetContent(ctx, key)
	gt.True(t, errors.Is(err, model.ErrNotFound))

	// deleting again is not an error
	gt.NoError(t, store.Delete(ctx, key))
}

func TestBoltSignedReadURL(t *testing.T) {
	ctx := context.Background()
	store := newBoltStore(t)

	key, err := store.Store(ctx, model.NewConversationID(), "<p>signed</p>")
	gt.NoError(t, err)

	signed, err := store.SignedReadURL(ctx, key, time.Minute)
	gt.NoError(t, err)
	gt.S(t, signed).Contains("http://localhost:8080/blob/" + key.String())

	u, err := url.Parse(signed)
	gt.NoError(t, err)
	q := u.Query()

	gt.NoError(t, store.VerifySignedURL(key, q.Get("expires"), q.Get("signature")))
	gt.Error(t, store.VerifySignedURL(model.ContentKey("conversations/other.html"), q.Get("expires"), q.Get("signature")))
	gt.Error(t, store.VerifySignedURL(key, q.Get("expires")+"0", q.Get("signature")))
	gt.Error(t, store.VerifySignedURL(key, "abc", q.Get("signature")))
}

func TestURLSignerExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	signer, err := adapter.NewURLSigner([]byte("k"), "http://example.com",
		adapter.WithSignerClock(func() time.Time { return now }))
	gt.NoError(t, err)

	key := model.ContentKey("conversations/a.html")

	// non-positive expiry falls back to the default hour
	u, err := url.Parse(signer.Sign(key, 0))
	gt.NoError(t, err)
	gt.Equal(t, u.Query().Get("expires"), strconv.FormatInt(now.Add(time.Hour).Unix(), 10))
	gt.NoError(t, signer.Verify(key, u.Query().Get("expires"), u.Query().Get("signature")))

	now = now.Add(time.Hour + time.Second)
	gt.Error(t, signer.Verify(key, u.Query().Get("expires"), u.Query().Get("signature")))
}

func TestNewURLSignerRequiresKey(t *testing.T) {
	_, err := adapter.NewURLSigner(nil, "http://example.com")
	gt.Error(t, err)
}
