package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshToken_State(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	succ := "next"
	empty := ""

	tests := []struct {
		name  string
		token RefreshToken
		want  TokenState
	}{
		{name: "active", token: RefreshToken{ExpiresAt: now.Add(time.Hour)}, want: StateActive},
		{name: "expires exactly now", token: RefreshToken{ExpiresAt: now}, want: StateExpired},
		{name: "revoked", token: RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &now}, want: StateRevoked},
		{name: "revoked with empty successor", token: RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &now, ReplacedBy: &empty}, want: StateRevoked},
		{name: "rotated", token: RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &now, ReplacedBy: &succ}, want: StateRotated},
		{name: "rotated then expired", token: RefreshToken{ExpiresAt: now.Add(-time.Hour), RevokedAt: &now, ReplacedBy: &succ}, want: StateExpired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.token.State(now))
			assert.Equal(t, tt.want == StateActive, tt.token.IsActive(now))
		})
	}
}

func TestPermissionList_ValueScan(t *testing.T) {
	t.Parallel()

	v, err := PermissionList{"users.view", "reports.create"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"users.view","reports.create"}`, v)

	var p PermissionList
	require.NoError(t, p.Scan([]byte(`{users.view,reports.create}`)))
	assert.Equal(t, PermissionList{"users.view", "reports.create"}, p)
	assert.True(t, p.Contains("users.view"))
	assert.False(t, p.Contains("users.delete"))

	require.NoError(t, p.Scan(nil))
	assert.Nil(t, p)
}
