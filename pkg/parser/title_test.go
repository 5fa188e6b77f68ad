package parser_test

import (
	"testing"

	"github.com/aiarchives/aiarchives/pkg/parser"
	"github.com/m-mizutani/gt"
)

func TestExtractTitle(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want string
	}{
		{"document", "<html><head><title>Shared chat</title></head><body>hi</body></html>", "Shared chat"},
		{"fragment", "<head><title>\n  ChatGPT -  Go  tips\n</title></head><body></body>", "ChatGPT - Go tips"},
		{"entities", "<title>Q&amp;A</title>", "Q&A"},
		{"missing", "<html><body>hi</body></html>", ""},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, parser.ExtractTitle(tc.doc), tc.want)
		})
	}
}
