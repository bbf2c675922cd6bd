// Package permissions decides who may drive model switches from a chat surface,
// based on configurable allow and deny lists of user and role ids.
package permissions

import (
	"path/filepath"
	"strings"
)

// Decision represents the permission decision for a chat command
type Decision int

const (
	// Deny means the command is rejected (default behavior)
	Deny Decision = iota
	// Allow means the sender may run the command
	Allow
)

// String returns a human-readable representation of the decision
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Config lists the user and role ids that may, or may not, run commands.
// Entries are glob patterns matched case-insensitively.
type Config struct {
	AllowUsers []string `yaml:"allow_users,omitempty"`
	AllowRoles []string `yaml:"allow_roles,omitempty"`
	DenyUsers  []string `yaml:"deny_users,omitempty"`
	DenyRoles  []string `yaml:"deny_roles,omitempty"`
}

// Checker evaluates command permissions based on configured patterns
type Checker struct {
	allowUsers []string
	allowRoles []string
	denyUsers  []string
	denyRoles  []string
}

// NewChecker creates a new permission checker from config
func NewChecker(cfg *Config) *Checker {
	if cfg == nil {
		return &Checker{}
	}
	return &Checker{
		allowUsers: cfg.AllowUsers,
		allowRoles: cfg.AllowRoles,
		denyUsers:  cfg.DenyUsers,
		denyRoles:  cfg.DenyRoles,
	}
}

// Check evaluates the permission for a sender.
// Evaluation order: Deny (checked first), then Allow, then Deny (default).
// An empty configuration therefore denies everyone.
func (c *Checker) Check(userID string, roleIDs []string) Decision {
	if c == nil {
		return Deny
	}

	if matchAny(c.denyUsers, userID) {
		return Deny
	}
	for _, role := range roleIDs {
		if matchAny(c.denyRoles, role) {
			return Deny
		}
	}

	if matchAny(c.allowUsers, userID) {
		return Allow
	}
	for _, role := range roleIDs {
		if matchAny(c.allowRoles, role) {
			return Allow
		}
	}

	return Deny
}

// IsEmpty returns true if no permissions are configured
func (c *Checker) IsEmpty() bool {
	return c == nil || len(c.allowUsers)+len(c.allowRoles)+len(c.denyUsers)+len(c.denyRoles) == 0
}

func matchAny(patterns []string, value string) bool {
	if value == "" {
		return false
	}
	for _, pattern := range patterns {
		if matchGlob(pattern, value) {
			return true
		}
	}
	return false
}

// matchGlob checks if a value matches a glob pattern.
// Supports glob-style patterns using filepath.Match semantics.
// Matching is case-insensitive.
//
// A trailing "*" with no other glob characters is a plain prefix match so
// that "admin*" also matches ids containing separators.
func matchGlob(pattern, value string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	value = strings.ToLower(value)

	if strings.HasSuffix(pattern, "*") && !strings.HasSuffix(pattern, "\\*") {
		prefix := pattern[:len(pattern)-1]
		if !strings.ContainsAny(prefix, "*?[") {
			return strings.HasPrefix(value, prefix)
		}
	}

	matched, err := filepath.Match(pattern, value)
	return err == nil && matched
}
