package environment

import "context"

// MultiProvider asks each provider in order and returns the first non-empty value.
type MultiProvider struct {
	providers []Provider
}

func NewMultiProvider(providers ...Provider) *MultiProvider {
	return &MultiProvider{
		providers: providers,
	}
}

func (p *MultiProvider) Get(ctx context.Context, name string) string {
	for _, provider := range p.providers {
		if value := provider.Get(ctx, name); value != "" {
			return value
		}
	}

	return ""
}
