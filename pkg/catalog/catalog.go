// Package catalog holds the closed allowlist of models the switcher may
// activate, along with their short aliases. The list is loaded once at
// startup and never changes while the process runs.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed models.yaml
var bundled []byte

// Entry is a single allowed model.
type Entry struct {
	ID      string   `yaml:"id"`
	Aliases []string `yaml:"aliases,omitempty"`
}

type file struct {
	Models []Entry `yaml:"models"`
}

// Catalog is an immutable allowlist.
type Catalog struct {
	entries []Entry
	ids     map[string]struct{}
	aliases map[string]string
}

// Bundled returns the catalog shipped with the binary.
func Bundled() (*Catalog, error) {
	return Parse(bundled)
}

// Load reads the catalog from path, or returns the bundled one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Bundled()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid model catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from YAML. Every id must be well formed and every
// alias must be unique.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.New(yaml.FormatError(err, false, true))
	}
	if len(f.Models) == 0 {
		return nil, errors.New("catalog does not list any model")
	}

	c := &Catalog{
		ids:     make(map[string]struct{}, len(f.Models)),
		aliases: make(map[string]string),
	}

	for _, e := range f.Models {
		e.ID = strings.TrimSpace(e.ID)
		if err := CheckFormat(e.ID); err != nil {
			return nil, err
		}
		if _, dup := c.ids[e.ID]; dup {
			return nil, fmt.Errorf("model %q is listed twice", e.ID)
		}
		c.ids[e.ID] = struct{}{}

		for _, alias := range e.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if existing, dup := c.aliases[key]; dup {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", alias, existing, e.ID)
			}
			c.aliases[key] = e.ID
		}
		c.entries = append(c.entries, e)
	}

	return c, nil
}

// Contains reports whether id is on the allowlist.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.ids[id]
	return ok
}

// Alias returns the model id an alias points to.
func (c *Catalog) Alias(name string) (string, bool) {
	id, ok := c.aliases[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Entries returns the allowed models in file order.
func (c *Catalog) Entries() []Entry {
	return slices.Clone(c.entries)
}
