// Package redact removes credentials from text shown to users.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

const Placeholder = "[redacted]"

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`),
	regexp.MustCompile(`sk-or-[A-Za-z0-9_-]{8,}`),
	regexp.MustCompile(`sk-(?:ant-)?[A-Za-z0-9_-]{16,}`),
	regexp.MustCompile(`(?i)((?:token|api_key|apikey|key|password|secret)=)[^\s&"']+`),
	regexp.MustCompile(`(?i)("(?:token|api_key|apiKey|password|secret)"\s*:\s*")[^"]*`),
}

// Redactor masks well-known credential shapes plus a set of explicit secrets.
type Redactor struct {
	secrets []string
}

// New returns a Redactor that also masks every non-empty secret verbatim.
func New(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// String returns s with credentials replaced by the placeholder.
func (r *Redactor) String(s string) string {
	if r != nil {
		for _, secret := range r.secrets {
			s = strings.ReplaceAll(s, secret, Placeholder)
		}
	}
	for _, re := range patterns {
		if re.NumSubexp() > 0 {
			s = re.ReplaceAllString(s, "${1}"+Placeholder)
		} else {
			s = re.ReplaceAllString(s, Placeholder)
		}
	}
	return s
}

// Error is a nil-safe shortcut for String(err.Error()).
func (r *Redactor) Error(err error) string {
	if err == nil {
		return ""
	}
	return r.String(err.Error())
}

// URL hides the password and any token-like query parameters of a URL.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return String(raw)
	}
	q := u.Query()
	for key := range q {
		switch strings.ToLower(key) {
		case "token", "key", "api_key", "apikey", "access_token":
			q.Set(key, Placeholder)
		}
	}
	u.RawQuery = q.Encode()
	return u.Redacted()
}

// String redacts s using only the built-in patterns.
func String(s string) string {
	return (*Redactor)(nil).String(s)
}
