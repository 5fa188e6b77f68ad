package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/aiarchives/aiarchives/pkg/usecase/conversation"
	"github.com/gabriel-vasile/mimetype"
	"github.com/m-mizutani/goerr/v2"
)

const (
	formFieldHTML  = "htmlDoc"
	formFieldModel = "model"
)

type createResponse struct {
	URL string `json:"url"`
}

type listResponse struct {
	Conversations []*model.ConversationRecord `json:"conversations"`
}

type detailResponse struct {
	Conversation *model.ConversationRecord `json:"conversation"`
	Content      string                    `json:"content"`
}

type urlResponse struct {
	URL string `json:"url"`
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	html, err := readHTMLDoc(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	out, err := s.uc.Ingest(r.Context(), conversation.IngestInput{
		HTML:  html,
		Model: r.FormValue(formFieldModel),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{URL: out.Permalink})
}

// readHTMLDoc extracts the htmlDoc file part. It must be present, sent as a
// file, non-empty and UTF-8 text.
func readHTMLDoc(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", goerr.Wrap(model.ErrValidation, "request body too large",
				goerr.V("limit", tooLarge.Limit))
		}
		return "", goerr.Wrap(model.WithKind(model.ErrValidation, err), "invalid multipart form")
	}

	file, header, err := r.FormFile(formFieldHTML)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", goerr.Wrap(model.ErrValidation, "htmlDoc file is required")
		}
		return "", goerr.Wrap(model.WithKind(model.ErrValidation, err), "invalid htmlDoc file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", goerr.Wrap(model.WithKind(model.ErrValidation, err), "failed to read htmlDoc file")
	}
	if len(data) == 0 {
		return "", goerr.Wrap(model.ErrValidation, "htmlDoc file is empty")
	}

	if mt := mimetype.Detect(data); !isText(mt) {
		return "", goerr.Wrap(model.ErrValidation, "htmlDoc must be text content",
			goerr.V("detected", mt.String()), goerr.V("filename", header.Filename))
	}
	if !utf8.Valid(data) {
		return "", goerr.Wrap(model.ErrValidation, "htmlDoc must be UTF-8 encoded",
			goerr.V("filename", header.Filename))
	}

	return string(data), nil
}

// isText reports whether mt is text/plain or descends from it (text/html,
// text/xml and the like)
func isText(mt *mimetype.MIME) bool {
	for ; mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	records, err := s.uc.List(r.Context(), opts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if records == nil {
		records = []*model.ConversationRecord{}
	}

	writeJSON(w, http.StatusOK, listResponse{Conversations: records})
}

func parseListOptions(r *http.Request) (conversation.ListOptions, error) {
	opts := conversation.ListOptions{
		Limit:  conversation.DefaultListLimit,
		Offset: 0,
	}
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, goerr.Wrap(model.ErrValidation, "limit must be an integer between 1 and 100",
				goerr.V("limit", v))
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, goerr.Wrap(model.ErrValidation, "offset must be a non-negative integer",
				goerr.V("offset", v))
		}
		opts.Offset = n
	}

	return opts, opts.Validate()
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	detail, err := s.uc.Show(r.Context(), model.ConversationID(r.PathValue("id")))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Conversation: detail.Record,
		Content:      detail.Content,
	})
}

func (s *Server) getConversationURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.uc.SignedURL(r.Context(), model.ConversationID(r.PathValue("id")))
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) getBlob(w http.ResponseWriter, r *http.Request) {
	key := model.ContentKey(r.PathValue("key"))
	q := r.URL.Query()

	if err := s.blobs.VerifySignedURL(key, q.Get("expires"), q.Get("signature")); err != nil {
		logError(r, http.StatusForbidden, err)
		writeErrorString(w, http.StatusForbidden, "invalid or expired signature")
		return
	}

	content, err := s.blobs.GetContent(r.Context(), key)
	if err != nil {
		handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, content)
}
