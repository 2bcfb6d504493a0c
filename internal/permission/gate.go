package permission

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrUnknownOperation = errors.New("operation has no policy")
)

type Operation string

const (
	OpUsersList          Operation = "users.list"
	OpUsersGet           Operation = "users.get"
	OpUsersRefreshTokens Operation = "users.refresh_tokens"
	OpUsersCreate        Operation = "users.create"
)

// Policy maps each guarded operation to the permissions it requires.
type Policy map[Operation][]Permission

func DefaultPolicy() Policy {
	return Policy{
		OpUsersList:          {UsersView},
		OpUsersGet:           {UsersView},
		OpUsersRefreshTokens: {UsersView},
		OpUsersCreate:        {UsersCreate},
	}
}

type Gate struct {
	policy Policy
}

func NewGate(p Policy) *Gate {
	cp := make(Policy, len(p))
	for op, perms := range p {
		cp[op] = append([]Permission(nil), perms...)
	}
	return &Gate{policy: cp}
}

// Authorize allows the call iff the identity holds every permission the
// operation requires. Role plays no part; unknown operations are denied.
func (g *Gate) Authorize(id *Identity, op Operation) error {
	if id == nil {
		return ErrUnauthenticated
	}
	required, ok := g.policy[op]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	if !id.Permissions.ContainsAll(required) {
		return fmt.Errorf("%w: %s", ErrForbidden, op)
	}
	return nil
}

func (g *Gate) Required(op Operation) ([]Permission, bool) {
	perms, ok := g.policy[op]
	return append([]Permission(nil), perms...), ok
}
