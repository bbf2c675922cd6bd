// Package aliases stores operator-defined short names for model ids,
// e.g. "work" -> "openrouter/openai/gpt-4o". They are layered on top of the
// aliases bundled with the model catalog.
package aliases

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/docker/model-switcher/pkg/atomicfile"
)

// Aliases represents the aliases file
type Aliases struct {
	Aliases map[string]string `yaml:"aliases"`

	path string
}

// LoadFrom loads aliases from a specific file path. A missing file yields an empty set.
func LoadFrom(path string) (*Aliases, error) {
	s := &Aliases{Aliases: make(map[string]string), path: path}

	data, err := atomicfile.Read(path)
	if err != nil {
		if errors.Is(err, atomicfile.ErrNotFound) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read aliases file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse aliases file: %w", err)
	}

	if s.Aliases == nil {
		s.Aliases = make(map[string]string)
	}

	return s, nil
}

// Save writes the aliases back to the file they were loaded from.
func (s *Aliases) Save() error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal aliases: %w", err)
	}

	return atomicfile.Write(s.path, data)
}

// Get retrieves the model id for an alias. Lookups are case-insensitive.
func (s *Aliases) Get(name string) (string, bool) {
	id, ok := s.Aliases[strings.ToLower(name)]
	return id, ok
}

// validNameRegex matches valid alias names: alphanumeric characters, dots, hyphens, and underscores.
// Must start with an alphanumeric character.
var validNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateName checks if an alias name is valid. Names containing a slash
// are refused so that an alias can never shadow a full model id.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("alias name cannot be empty")
	}
	if !validNameRegex.MatchString(name) {
		return fmt.Errorf("invalid alias name %q: must start with a letter or digit and contain only letters, digits, dots, hyphens, and underscores", name)
	}
	return nil
}

// Set creates or updates an alias
func (s *Aliases) Set(name, modelID string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if modelID == "" {
		return errors.New("model id cannot be empty")
	}

	s.Aliases[strings.ToLower(name)] = modelID
	return nil
}

// Delete removes an alias
func (s *Aliases) Delete(name string) bool {
	key := strings.ToLower(name)
	if _, exists := s.Aliases[key]; exists {
		delete(s.Aliases, key)
		return true
	}
	return false
}

// Names returns all alias names, sorted.
func (s *Aliases) Names() []string {
	return slices.Sorted(maps.Keys(s.Aliases))
}
