package catalog

import "strings"

// AliasLookup resolves operator-defined aliases.
type AliasLookup interface {
	Get(name string) (string, bool)
}

// Resolve turns what an operator typed into a model id. Operator aliases win
// over catalog aliases. An OpenRouter-style id typed without the
// "openrouter/" prefix resolves to the prefixed catalog entry. Anything else
// is returned trimmed and unchanged, for validation to accept or reject.
func (c *Catalog) Resolve(token string, userAliases AliasLookup) string {
	t := strings.TrimSpace(token)

	if userAliases != nil {
		if id, ok := userAliases.Get(t); ok {
			return id
		}
	}
	if id, ok := c.Alias(t); ok {
		return id
	}
	if c.Contains(t) {
		return t
	}
	if prefixed := "openrouter/" + t; c.Contains(prefixed) {
		return prefixed
	}
	return t
}
