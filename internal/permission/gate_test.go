package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Authorize(t *testing.T) {
	t.Parallel()

	gate := NewGate(Policy{
		"reports.publish": {ReportsView, ReportsEdit},
		"health":          {},
	})

	tests := []struct {
		name string
		id   *Identity
		op   Operation
		want error
	}{
		{name: "nil identity", id: nil, op: "reports.publish", want: ErrUnauthenticated},
		{name: "unknown operation", id: &Identity{Permissions: NewSet(ReportsView, ReportsEdit)}, op: "reports.burn", want: ErrUnknownOperation},
		{name: "exact set", id: &Identity{Permissions: NewSet(ReportsView, ReportsEdit)}, op: "reports.publish"},
		{name: "superset", id: &Identity{Permissions: NewSet(ReportsView, ReportsEdit, UsersView)}, op: "reports.publish"},
		{name: "partial", id: &Identity{Permissions: NewSet(ReportsView)}, op: "reports.publish", want: ErrForbidden},
		{name: "admin role is not expanded", id: &Identity{Role: "admin", Permissions: NewSet()}, op: "reports.publish", want: ErrForbidden},
		{name: "nil permission set", id: &Identity{}, op: "reports.publish", want: ErrForbidden},
		{name: "empty requirement", id: &Identity{}, op: "health"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := gate.Authorize(tt.id, tt.op)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewGate_CopiesPolicy(t *testing.T) {
	t.Parallel()

	p := Policy{"x": {UsersView}}
	gate := NewGate(p)
	p["x"][0] = UsersDelete
	p["y"] = nil

	req, ok := gate.Required("x")
	require.True(t, ok)
	assert.Equal(t, []Permission{UsersView}, req)
	_, ok = gate.Required("y")
	assert.False(t, ok)
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	gate := NewGate(DefaultPolicy())
	viewer := &Identity{Permissions: FromStrings([]string{"users.view"})}

	require.NoError(t, gate.Authorize(viewer, OpUsersList))
	require.NoError(t, gate.Authorize(viewer, OpUsersGet))
	require.NoError(t, gate.Authorize(viewer, OpUsersRefreshTokens))
	assert.ErrorIs(t, gate.Authorize(viewer, OpUsersCreate), ErrForbidden)
}

func TestKnown(t *testing.T) {
	t.Parallel()

	assert.True(t, Known("users.view"))
	assert.False(t, Known("users.fly"))
	assert.Len(t, All(), 20)
}
