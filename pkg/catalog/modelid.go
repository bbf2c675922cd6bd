package catalog

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Providers is the fixed set of provider prefixes a model id may use.
var Providers = []string{
	"openrouter",
	"anthropic",
	"openai",
	"google",
	"deepseek",
	"mistral",
	"ollama",
}

var modelRestRegex = regexp.MustCompile(`^[A-Za-z0-9._:-]+(/[A-Za-z0-9._:-]+)*$`)

// SplitModelID splits a "<provider>/<rest>" id.
func SplitModelID(id string) (provider, rest string, ok bool) {
	provider, rest, ok = strings.Cut(id, "/")
	if !ok || provider == "" || rest == "" {
		return "", "", false
	}
	return provider, rest, true
}

// CheckFormat reports whether id is a well formed, provider qualified model id.
func CheckFormat(id string) error {
	provider, rest, ok := SplitModelID(id)
	if !ok {
		return fmt.Errorf("model id %q must look like <provider>/<model>", id)
	}
	if !slices.Contains(Providers, provider) {
		return fmt.Errorf("unknown provider %q (allowed: %s)", provider, strings.Join(Providers, ", "))
	}
	if !modelRestRegex.MatchString(rest) {
		return fmt.Errorf("model id %q contains invalid characters", id)
	}
	return nil
}
