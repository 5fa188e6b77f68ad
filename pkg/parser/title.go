package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractTitle returns the text of the first <title> element of doc, or an
// empty string when there is none. The extension posts innerHTML, so doc is
// usually a fragment without the <html> element.
func ExtractTitle(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	inTitle := false
	var b strings.Builder

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				inTitle = true
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if inTitle && string(name) == "title" {
				return strings.Join(strings.Fields(b.String()), " ")
			}

		case html.TextToken:
			if inTitle {
				b.Write(tokenizer.Text())
			}
		}
	}
}
