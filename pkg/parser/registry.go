package parser

import (
	"sort"
	"strings"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Registry resolves model tokens to parsers
type Registry struct {
	parsers map[string]Parser
	names   []string
}

// New creates a new parser registry with the given parsers. It panics on a
// duplicated alias because the set of built-in parsers is fixed at startup.
func New(parsers ...Parser) *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	for _, p := range parsers {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}

	return r
}

// NewDefault creates a registry holding Builtins
func NewDefault(opts ...PassthroughOption) *Registry {
	return New(Builtins(opts...)...)
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// Register adds a parser under its canonical name and aliases
func (r *Registry) Register(p Parser) error {
	tokens := append([]string{p.Name()}, p.Aliases()...)

	for _, token := range tokens {
		key := normalize(token)
		if existing, ok := r.parsers[key]; ok && existing != p {
			return goerr.New("duplicated parser alias",
				goerr.V("alias", key),
				goerr.V("parser", p.Name()),
				goerr.V("existing", existing.Name()))
		}
	}

	for _, token := range tokens {
		r.parsers[normalize(token)] = p
	}
	r.names = append(r.names, p.Name())
	sort.Strings(r.names)

	return nil
}

// Resolve returns the parser for token. Matching is case-insensitive.
func (r *Registry) Resolve(token string) (Parser, error) {
	p, ok := r.parsers[normalize(token)]
	if !ok {
		return nil, goerr.Wrap(model.ErrUnsupportedModel, "unsupported or unknown model", goerr.V("model", token))
	}
	return p, nil
}

// Names returns the canonical names of registered parsers in sorted order
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}
