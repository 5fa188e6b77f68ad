package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aiarchives/aiarchives/pkg/adapter"
	"github.com/aiarchives/aiarchives/pkg/controller/server"
	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/aiarchives/aiarchives/pkg/parser"
	"github.com/aiarchives/aiarchives/pkg/repository"
	"github.com/aiarchives/aiarchives/pkg/usecase/conversation"
	"github.com/m-mizutani/gt"
)

const baseURL = "http://archives.test"

type fixture struct {
	handler http.Handler
	repo    repository.Repository
	store   adapter.SelfServedStore
}

func setup(t *testing.T, opts ...server.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := repository.NewSQLite(ctx, filepath.Join(dir, "aiarchives.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	gt.NoError(t, repo.Migrate(ctx))

	signer, err := adapter.NewURLSigner([]byte("test-signing-key"), baseURL)
	gt.NoError(t, err)
	store, err := adapter.NewBolt(filepath.Join(dir, "blobs.db"), signer)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	uc := conversation.New(repo, store, parser.NewDefault(), baseURL)
	opts = append([]server.Option{server.WithBlobStore(store)}, opts...)

	return &fixture{
		handler: server.New(uc, opts...).Handler(),
		repo:    repo,
		store:   store,
	}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

type part struct {
	field    string
	filename string
	body     []byte
}

func newUpload(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			gt.NoError(t, mw.WriteField(p.field, string(p.body)))
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", "text/html")
		w, err := mw.CreatePart(h)
		gt.NoError(t, err)
		_, err = w.Write(p.body)
		gt.NoError(t, err)
	}
	gt.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/conversation", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func htmlDoc(body string) part {
	return part{field: "htmlDoc", filename: "page.html", body: []byte(body)}
}

func modelField(name string) part {
	return part{field: "model", body: []byte(name)}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type errorBody struct {
	Error string `json:"error"`
}

type detailBody struct {
	Conversation model.ConversationRecord `json:"conversation"`
	Content      string                   `json:"content"`
}

type listBody struct {
	Conversations []model.ConversationRecord `json:"conversations"`
}

// submit posts html and returns the id embedded in the permalink
func (f *fixture) submit(t *testing.T, html, modelName string) string {
	t.Helper()
	w := f.do(newUpload(t, htmlDoc(html), modelField(modelName)))
	gt.Equal(t, w.Code, http.StatusCreated)

	resp := decode[struct {
		URL string `json:"url"`
	}](t, w)
	prefix := baseURL + "/conversation/"
	gt.True(t, strings.HasPrefix(resp.URL, prefix))
	return strings.TrimPrefix(resp.URL, prefix)
}

func TestIngestThenGet(t *testing.T) {
	f := setup(t)
	html := "<html><body>hi</body></html>"

	id := f.submit(t, html, "Claude")
	gt.NotEqual(t, id, "")

	w := f.get("/api/conversation/" + id)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "*")

	body := decode[detailBody](t, w)
	gt.Equal(t, body.Content, html)
	gt.Equal(t, body.Conversation.ID.String(), id)
	gt.Equal(t, body.Conversation.Model, "Claude")
	gt.Equal(t, body.Conversation.SourceHTMLBytes, int64(28))
	gt.Equal(t, body.Conversation.Views, int64(0))
	gt.True(t, strings.HasPrefix(body.Conversation.ContentKey.String(), "conversations/"))
	gt.True(t, strings.HasSuffix(body.Conversation.ContentKey.String(), ".html"))
}

func TestIngestMultibyte(t *testing.T) {
	f := setup(t)
	html := "<p>こんにちは 🌏</p>"

	id := f.submit(t, html, "gemini")

	body := decode[detailBody](t, f.get("/api/conversation/"+id))
	gt.Equal(t, body.Content, html)
	gt.Equal(t, body.Conversation.Model, "Gemini")
	gt.Equal(t, body.Conversation.SourceHTMLBytes, int64(len(html)))
}

func TestIngestDefaultModel(t *testing.T) {
	f := setup(t)

	w := f.do(newUpload(t, htmlDoc("<p>x</p>")))
	gt.Equal(t, w.Code, http.StatusCreated)

	list := decode[listBody](t, f.get("/api/conversation"))
	gt.A(t, list.Conversations).Length(1)
	gt.Equal(t, list.Conversations[0].Model, "ChatGPT")
}

func TestIngestValidation(t *testing.T) {
	testCases := map[string]*http.Request{
		"missing file":  newUpload(t, modelField("Claude")),
		"not a file":    newUpload(t, part{field: "htmlDoc", body: []byte("<p>x</p>")}),
		"empty file":    newUpload(t, htmlDoc("")),
		"binary file":   newUpload(t, part{field: "htmlDoc", filename: "a.png", body: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")}),
		"invalid utf8":  newUpload(t, htmlDoc("<p>\xff\xfe\xfd</p>")),
		"unknown model": newUpload(t, htmlDoc("<p>x</p>"), modelField("mistral")),
		"not multipart": func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/conversation", strings.NewReader(`{"htmlDoc":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}(),
	}

	for name, req := range testCases {
		t.Run(name, func(t *testing.T) {
			f := setup(t)
			w := f.do(req)
			gt.Equal(t, w.Code, http.StatusBadRequest)
			gt.NotEqual(t, decode[errorBody](t, w).Error, "")

			records, err := f.repo.ListConversations(context.Background(), 10, 0)
			gt.NoError(t, err)
			gt.A(t, records).Length(0)
		})
	}
}

func TestIngestTooLarge(t *testing.T) {
	f := setup(t, server.WithMaxUploadBytes(1024))

	w := f.do(newUpload(t, htmlDoc("<p>"+strings.Repeat("a", 4096)+"</p>")))
	gt.Equal(t, w.Code, http.StatusBadRequest)
	gt.NotEqual(t, decode[errorBody](t, w).Error, "")
}

func TestGetNotFound(t *testing.T) {
	f := setup(t)

	for _, path := range []string{
		"/api/conversation/" + model.NewConversationID().String(),
		"/api/conversation/" + model.NewConversationID().String() + "/url",
	} {
		w := f.get(path)
		gt.Equal(t, w.Code, http.StatusNotFound)
		gt.S(t, decode[errorBody](t, w).Error).Contains("not found")
	}
}

func TestListPagination(t *testing.T) {
	f := setup(t)

	testCases := []struct {
		query  string
		status int
	}{
		{"?limit=0", http.StatusBadRequest},
		{"?limit=101", http.StatusBadRequest},
		{"?limit=abc", http.StatusBadRequest},
		{"?limit=1.5", http.StatusBadRequest},
		{"?limit=1", http.StatusOK},
		{"?limit=100", http.StatusOK},
		{"?offset=-1", http.StatusBadRequest},
		{"?offset=x", http.StatusBadRequest},
		{"?offset=0", http.StatusOK},
		{"", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			w := f.get("/api/conversation" + tc.query)
			gt.Equal(t, w.Code, tc.status)
			if tc.status == http.StatusOK {
				gt.S(t, w.Body.String()).Contains(`"conversations":[`)
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	f := setup(t)
	first := f.submit(t, "<p>1</p>", "gpt")
	second := f.submit(t, "<p>2</p>", "gpt")

	list := decode[listBody](t, f.get("/api/conversation?limit=1"))
	gt.A(t, list.Conversations).Length(1)
	gt.Equal(t, list.Conversations[0].ID.String(), second)

	list = decode[listBody](t, f.get("/api/conversation?limit=1&offset=1"))
	gt.A(t, list.Conversations).Length(1)
	gt.Equal(t, list.Conversations[0].ID.String(), first)
}

func TestSignedURL(t *testing.T) {
	f := setup(t)
	html := "<html><body>signed</body></html>"
	id := f.submit(t, html, "grok")

	w := f.get("/api/conversation/" + id + "/url")
	gt.Equal(t, w.Code, http.StatusOK)
	resp := decode[struct {
		URL string `json:"url"`
	}](t, w)

	u, err := url.Parse(resp.URL)
	gt.NoError(t, err)
	gt.Equal(t, u.Scheme+"://"+u.Host, baseURL)

	w = f.get(u.RequestURI())
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Body.String(), html)

	q := u.Query()
	sig := []byte(q.Get("signature"))
	if sig[0] == '0' {
		sig[0] = '1'
	} else {
		sig[0] = '0'
	}
	q.Set("signature", string(sig))
	w = f.get(u.Path + "?" + q.Encode())
	gt.Equal(t, w.Code, http.StatusForbidden)
}

func TestPreflight(t *testing.T) {
	f := setup(t)

	for _, path := range []string{"/api/conversation", "/api/conversation/abc"} {
		w := f.do(httptest.NewRequest(http.MethodOptions, path, nil))
		gt.Equal(t, w.Code, http.StatusNoContent)
		gt.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "*")
		gt.Equal(t, w.Header().Get("Access-Control-Allow-Methods"), "POST, GET, OPTIONS")
		gt.Equal(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	}
}

func TestConversationPageCountsViews(t *testing.T) {
	f := setup(t)
	id := f.submit(t, "<html><head><title>Trip plan</title></head><body>hi</body></html>", "claude")

	for i := 0; i < 2; i++ {
		w := f.get("/conversation/" + id)
		gt.Equal(t, w.Code, http.StatusOK)
		gt.S(t, w.Header().Get("Content-Type")).Contains("text/html")
		gt.S(t, w.Body.String()).Contains("Trip plan")
		gt.S(t, w.Body.String()).Contains("sandbox")
	}

	body := decode[detailBody](t, f.get("/api/conversation/"+id))
	gt.Equal(t, body.Conversation.Views, int64(2))

	// API reads do not count
	body = decode[detailBody](t, f.get("/api/conversation/"+id))
	gt.Equal(t, body.Conversation.Views, int64(2))
}

func TestConversationPageEscapesContent(t *testing.T) {
	f := setup(t)
	id := f.submit(t, `<p>"quoted"</p><script>alert(1)</script>`, "claude")

	w := f.get("/conversation/" + id)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.False(t, strings.Contains(w.Body.String(), "<script>alert(1)</script>"))
}

func TestConversationPageNotFound(t *testing.T) {
	f := setup(t)

	w := f.get("/conversation/" + model.NewConversationID().String())
	gt.Equal(t, w.Code, http.StatusNotFound)
	gt.S(t, w.Body.String()).Contains("Conversation not found")
}

func TestLegacyPermalink(t *testing.T) {
	f := setup(t)

	w := f.get("/c/abc")
	gt.Equal(t, w.Code, http.StatusPermanentRedirect)
	gt.Equal(t, w.Header().Get("Location"), "/conversation/abc")
}

func TestIndexPage(t *testing.T) {
	now := time.Now().Add(73 * time.Hour)
	f := setup(t, server.WithClock(func() time.Time { return now }))

	w := f.get("/")
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains("No conversations archived yet")

	id := f.submit(t, "<p>x</p>", "perplexity")
	w = f.get("/")
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains("/conversation/" + id)
	gt.S(t, w.Body.String()).Contains("Perplexity")
	gt.S(t, w.Body.String()).Contains("3 days ago")
}
