package httpclient

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/docker/model-switcher/pkg/version"
)

type userAgentTransport struct {
	agent string
	rt    http.RoundTripper
}

func (u *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r2 := req.Clone(req.Context())
	r2.Header.Set("User-Agent", u.agent)
	return u.rt.RoundTrip(r2)
}

// UserAgent is sent with every outbound request.
func UserAgent() string {
	return fmt.Sprintf("ModelSwitcher/%s (%s; %s)", version.Version, runtime.GOOS, runtime.GOARCH)
}

// NewHttpClient returns a client that stamps our User-Agent on requests.
// A zero timeout leaves requests bounded only by their context.
func NewHttpClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			agent: UserAgent(),
			rt:    http.DefaultTransport,
		},
	}
}
