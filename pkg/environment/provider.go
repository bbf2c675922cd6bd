package environment

import "context"

// Provider looks up secrets and settings that may come from the process
// environment or from other sources.
type Provider interface {
	// Get returns the value of the named variable, or "" when it is unset.
	Get(ctx context.Context, name string) string
}
