package server

import (
	"bytes"
	"net/http"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/aiarchives/aiarchives/pkg/parser"
	"github.com/aiarchives/aiarchives/pkg/usecase/conversation"
)

type indexData struct {
	Conversations []*model.ConversationRecord
}

type conversationData struct {
	Conversation *model.ConversationRecord
	Title        string
	Content      string
}

type errorData struct {
	Status  int
	Message string
}

func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	records, err := s.uc.List(r.Context(), conversation.ListOptions{Limit: recentLimit})
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "index.html", indexData{Conversations: records})
}

// conversationPage counts a view and renders the stored page in a sandboxed
// frame
func (s *Server) conversationPage(w http.ResponseWriter, r *http.Request) {
	detail, err := s.uc.View(r.Context(), model.ConversationID(r.PathValue("id")))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	title := parser.ExtractTitle(detail.Content)
	if title == "" {
		title = detail.Record.Model + " conversation"
	}

	s.render(w, r, http.StatusOK, "conversation.html", conversationData{
		Conversation: detail.Record,
		Title:        title,
		Content:      detail.Content,
	})
}

func (s *Server) legacyPermalink(w http.ResponseWriter, r *http.Request) {
	target := "/" + conversation.PermalinkRoute + "/" + r.PathValue("id")
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	logError(r, status, err)
	s.render(w, r, status, "error.html", errorData{Status: status, Message: msg})
}

// render executes into a buffer first so a template failure can still
// produce a clean 500
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		logError(r, http.StatusInternalServerError, err)
		http.Error(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
