package environment

import (
	"context"
	"os"
)

type OsEnvProvider struct{}

func NewOsEnvProvider() *OsEnvProvider {
	return &OsEnvProvider{}
}

func (p *OsEnvProvider) Get(_ context.Context, name string) string {
	return os.Getenv(name)
}

// MapProvider serves values from a fixed map. Handy for tests and for values
// parsed from env files.
type MapProvider map[string]string

func (p MapProvider) Get(_ context.Context, name string) string {
	return p[name]
}
