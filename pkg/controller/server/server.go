package server

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/aiarchives/aiarchives/pkg/adapter"
	"github.com/aiarchives/aiarchives/pkg/usecase/conversation"
)

const (
	// DefaultMaxUploadBytes caps the multipart body of an ingestion request
	DefaultMaxUploadBytes int64 = 32 << 20

	// multipart parts beyond this size spill to temporary files
	multipartMemory int64 = 8 << 20

	// recentLimit is the number of conversations shown on the index page
	recentLimit = 20
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the conversation API and the permalink pages
type Server struct {
	uc             *conversation.UseCase
	blobs          adapter.SelfServedStore
	maxUploadBytes int64
	now            func() time.Time
	pages          *template.Template
}

// Option is a functional option for Server
type Option func(*Server)

// WithBlobStore mounts GET /blob/{key...} so signed URLs minted by a
// self-served store can be followed
func WithBlobStore(store adapter.SelfServedStore) Option {
	return func(s *Server) {
		s.blobs = store
	}
}

// WithMaxUploadBytes sets the body limit for POST /api/conversation
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithClock sets the clock used for "N days ago" on the pages
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a new Server instance
func New(uc *conversation.UseCase, opts ...Option) *Server {
	s := &Server{
		uc:             uc,
		maxUploadBytes: DefaultMaxUploadBytes,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pages = template.Must(template.New("").Funcs(template.FuncMap{
		"daysAgo": s.daysAgo,
	}).ParseFS(templateFS, "templates/*.html"))

	return s
}

// Register wires the routes onto the supplied mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/conversation", s.createConversation)
	mux.HandleFunc("GET /api/conversation", s.listConversations)
	mux.HandleFunc("GET /api/conversation/{id}", s.getConversation)
	mux.HandleFunc("GET /api/conversation/{id}/url", s.getConversationURL)
	mux.HandleFunc("OPTIONS /api/conversation", preflight)
	mux.HandleFunc("OPTIONS /api/conversation/", preflight)

	if s.blobs != nil {
		mux.HandleFunc("GET "+adapter.BlobPathPrefix+"{key...}", s.getBlob)
	}

	mux.HandleFunc("GET /{$}", s.indexPage)
	mux.HandleFunc("GET /conversation/{id}", s.conversationPage)
	mux.HandleFunc("GET /c/{id}", s.legacyPermalink)
}

// Handler returns the routes wrapped with the request middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return withRequestLog(withRecover(withCORS(mux)))
}

func (s *Server) daysAgo(t time.Time) int {
	d := s.now().Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
