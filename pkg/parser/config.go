package parser

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// ModelsConfig is the structure of a models file. Each entry adds a
// passthrough parser next to the built-in ones.
//
//	models:
//	  - name: Mistral
//	    aliases: [mistral, lechat]
type ModelsConfig struct {
	Models []ModelConfig `yaml:"models"`
}

// ModelConfig declares one additional model
type ModelConfig struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// LoadFile registers the models declared in the YAML file at path. An empty
// path is a no-op.
func (r *Registry) LoadFile(path string, opts ...PassthroughOption) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return goerr.Wrap(err, "failed to read models file", goerr.V("path", path))
	}

	var cfg ModelsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return goerr.Wrap(err, "failed to parse models file", goerr.V("path", path))
	}

	for i, m := range cfg.Models {
		if normalize(m.Name) == "" {
			return goerr.New("model name is required", goerr.V("path", path), goerr.V("index", i))
		}
		if err := r.Register(NewPassthrough(m.Name, m.Aliases, opts...)); err != nil {
			return goerr.Wrap(err, "failed to register model", goerr.V("path", path), goerr.V("name", m.Name))
		}
	}

	return nil
}
