package parser

import (
	"context"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
)

// Parser converts the raw HTML of a share page into a Conversation. Per-vendor
// DOM extraction plugs in here without changing the Registry or the ingestion
// use case.
type Parser interface {
	// Name returns the canonical model name, e.g. "ChatGPT"
	Name() string

	// Aliases returns the lower-case tokens that resolve to this parser
	Aliases() []string

	// Parse builds a Conversation from html
	Parse(ctx context.Context, html string) (*model.Conversation, error)
}

// Clock returns the current time. Parsers stamp ScrapedAt with it.
type Clock func() time.Time

// Passthrough is a Parser that keeps the raw HTML as content
type Passthrough struct {
	name    string
	aliases []string
	now     Clock
}

// PassthroughOption configures a Passthrough parser
type PassthroughOption func(*Passthrough)

// WithClock replaces time.Now for ScrapedAt
func WithClock(clock Clock) PassthroughOption {
	return func(p *Passthrough) {
		p.now = clock
	}
}

// NewPassthrough creates a parser named name that answers to aliases
func NewPassthrough(name string, aliases []string, opts ...PassthroughOption) *Passthrough {
	p := &Passthrough{
		name:    name,
		aliases: aliases,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Passthrough) Name() string { return p.name }

func (p *Passthrough) Aliases() []string { return p.aliases }

func (p *Passthrough) Parse(ctx context.Context, html string) (*model.Conversation, error) {
	return &model.Conversation{
		Model:           p.name,
		Content:         html,
		ScrapedAt:       p.now().UTC(),
		SourceHTMLBytes: int64(len(html)),
	}, nil
}

// Builtins returns the parsers for all supported share pages
func Builtins(opts ...PassthroughOption) []Parser {
	return []Parser{
		NewPassthrough("ChatGPT", []string{"chatgpt", "gpt", "openai"}, opts...),
		NewPassthrough("Claude", []string{"claude", "anthropic"}, opts...),
		NewPassthrough("Gemini", []string{"gemini", "bard"}, opts...),
		NewPassthrough("Grok", []string{"grok", "xai"}, opts...),
		NewPassthrough("Meta", []string{"meta", "llama"}, opts...),
		NewPassthrough("DeepSeek", []string{"deepseek"}, opts...),
		NewPassthrough("Perplexity", []string{"perplexity"}, opts...),
		NewPassthrough("Copilot", []string{"copilot", "bing"}, opts...),
	}
}
