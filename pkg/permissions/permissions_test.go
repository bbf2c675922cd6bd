package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChecker(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()
		checker := NewChecker(nil)
		require.NotNil(t, checker)
		assert.True(t, checker.IsEmpty())
	})

	t.Run("empty config", func(t *testing.T) {
		t.Parallel()
		checker := NewChecker(&Config{})
		require.NotNil(t, checker)
		assert.True(t, checker.IsEmpty())
	})

	t.Run("with patterns", func(t *testing.T) {
		t.Parallel()
		checker := NewChecker(&Config{AllowUsers: []string{"alice"}})
		require.NotNil(t, checker)
		assert.False(t, checker.IsEmpty())
	})
}

func TestChecker_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    Config
		userID string
		roles  []string
		want   Decision
	}{
		{
			name:   "no patterns denies everyone",
			userID: "alice",
			want:   Deny,
		},
		{
			name:   "exact user match",
			cfg:    Config{AllowUsers: []string{"alice"}},
			userID: "alice",
			want:   Allow,
		},
		{
			name:   "user match is case-insensitive",
			cfg:    Config{AllowUsers: []string{"Alice"}},
			userID: "ALICE",
			want:   Allow,
		},
		{
			name:   "other user denied",
			cfg:    Config{AllowUsers: []string{"alice"}},
			userID: "bob",
			want:   Deny,
		},
		{
			name:   "role match",
			cfg:    Config{AllowRoles: []string{"ops"}},
			userID: "bob",
			roles:  []string{"dev", "ops"},
			want:   Allow,
		},
		{
			name:   "role prefix wildcard",
			cfg:    Config{AllowRoles: []string{"admin*"}},
			userID: "bob",
			roles:  []string{"admin:eu"},
			want:   Allow,
		},
		{
			name:   "deny user wins over allowed role",
			cfg:    Config{AllowRoles: []string{"ops"}, DenyUsers: []string{"mallory"}},
			userID: "mallory",
			roles:  []string{"ops"},
			want:   Deny,
		},
		{
			name:   "deny role wins over allowed user",
			cfg:    Config{AllowUsers: []string{"*"}, DenyRoles: []string{"guest"}},
			userID: "carol",
			roles:  []string{"guest"},
			want:   Deny,
		},
		{
			name:   "empty user id never matches",
			cfg:    Config{AllowUsers: []string{"*"}},
			userID: "",
			want:   Deny,
		},
		{
			name:   "glob with question mark",
			cfg:    Config{AllowUsers: []string{"user-??"}},
			userID: "user-42",
			want:   Allow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			checker := NewChecker(&tt.cfg)
			assert.Equal(t, tt.want, checker.Check(tt.userID, tt.roles))
		})
	}
}

func TestNilChecker(t *testing.T) {
	t.Parallel()

	var checker *Checker
	assert.Equal(t, Deny, checker.Check("alice", nil))
	assert.True(t, checker.IsEmpty())
}

func TestDecisionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, "unknown", Decision(42).String())
}
