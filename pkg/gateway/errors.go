package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
)

// Kind classifies a failed RPC call. The set is closed: callers switch on it
// instead of inspecting messages.
type Kind int

const (
	// KindTransient covers connectivity problems, timeouts, server errors and
	// any failure that says nothing about the request itself.
	KindTransient Kind = iota
	// KindRejected means the gateway understood the request and refused the
	// model id it carried.
	KindRejected
	// KindUnauthorized means the gateway refused our credentials.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is returned by every failed call.
type Error struct {
	Method     string
	Kind       Kind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway %s failed", e.Method)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindTransient for errors that
// did not come from this package.
func KindOf(err error) Kind {
	if gwErr, ok := errors.AsType[*Error](err); ok {
		return gwErr.Kind
	}
	return KindTransient
}

// rejectionCodes are the envelope error codes meaning "this model id is not valid here".
var rejectionCodes = []string{"unknown_model", "model_not_found", "not_found", "invalid_model"}

// legacyRejectionRegex recognizes rejections from gateways that only send a message.
var legacyRejectionRegex = regexp.MustCompile(`(?i)unknown model|model not found`)

// classify looks at the envelope code before the HTTP status: a 404 carrying
// a code such as "unknown_method" is about the call, not the model id.
func classify(statusCode int, code, message string) Kind {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return KindUnauthorized
	}

	if code != "" {
		if slices.Contains(rejectionCodes, strings.ToLower(code)) {
			return KindRejected
		}
		return KindTransient
	}

	if statusCode == http.StatusNotFound || legacyRejectionRegex.MatchString(message) {
		return KindRejected
	}
	return KindTransient
}
