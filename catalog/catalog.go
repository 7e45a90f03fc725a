// Package catalog loads the static tables: app registry, quick phrases and
// the pictogram vocabulary tree.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/playmixer/fala/intent"
	"github.com/playmixer/fala/navigator"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type file struct {
	Apps       []intent.AppEntry `yaml:"apps"`
	Phrases    []string          `yaml:"phrases"`
	Vocabulary *navigator.Node   `yaml:"vocabulary"`
}

type Catalog struct {
	Registry   *intent.Registry
	Phrases    []string
	Vocabulary *navigator.Node
}

// Load reads path, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(b []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	reg := intent.DefaultRegistry()
	if len(f.Apps) > 0 {
		var err error
		if reg, err = intent.NewRegistry(f.Apps...); err != nil {
			return nil, fmt.Errorf("catalog apps: %w", err)
		}
	}
	if f.Vocabulary == nil {
		f.Vocabulary = defaultVocabulary()
	}
	if err := f.Vocabulary.Validate(); err != nil {
		return nil, fmt.Errorf("catalog vocabulary: %w", err)
	}
	return &Catalog{
		Registry:   reg,
		Phrases:    f.Phrases,
		Vocabulary: f.Vocabulary,
	}, nil
}

// defaultVocabulary decodes a fresh copy of the embedded tree.
func defaultVocabulary() *navigator.Node {
	var f file
	if err := yaml.Unmarshal(defaultCatalog, &f); err != nil {
		panic(err)
	}
	return f.Vocabulary
}
