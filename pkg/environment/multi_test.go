package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiProvider(t *testing.T) {
	t.Parallel()

	process := MapProvider{"OPENCLAW_GATEWAY_TOKEN": "from-process"}
	envFile := MapProvider{
		"OPENCLAW_GATEWAY_TOKEN": "from-file",
		"OPENROUTER_API_KEY":     "sk-or-file",
	}

	tests := []struct {
		name      string
		providers []Provider
		variable  string
		want      string
	}{
		{name: "no providers", variable: "OPENCLAW_GATEWAY_TOKEN", want: ""},
		{name: "first provider wins", providers: []Provider{process, envFile}, variable: "OPENCLAW_GATEWAY_TOKEN", want: "from-process"},
		{name: "falls through to later provider", providers: []Provider{process, envFile}, variable: "OPENROUTER_API_KEY", want: "sk-or-file"},
		{name: "unset everywhere", providers: []Provider{process, envFile}, variable: "MODEL_SWITCHER_GATEWAY_URL", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, NewMultiProvider(tt.providers...).Get(t.Context(), tt.variable))
		})
	}
}
