package user

import (
	"errors"
	"strings"
)

// Role determines presence behavior on the map: broadcasters stream their
// position, seekers query for nearby broadcasters.
type Role string

const (
	RoleBroadcaster Role = "BROADCASTER"
	RoleSeeker      Role = "SEEKER"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes a role string, accepting both the canonical names
// and the backend's account types ("trabajador" / "cliente").
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BROADCASTER", "TRABAJADOR", "WORKER":
		return RoleBroadcaster, nil
	case "SEEKER", "CLIENTE", "CLIENT":
		return RoleSeeker, nil
	default:
		return "", ErrInvalidRole
	}
}

// Valid reports whether role is one of the allowed role constants.
func (role Role) Valid() bool {
	switch role {
	case RoleBroadcaster, RoleSeeker:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}

func (role Role) IsBroadcaster() bool { return role == RoleBroadcaster }
func (role Role) IsSeeker() bool      { return role == RoleSeeker }

// rolePriority orders roles for accounts that hold more than one: a user
// who can broadcast always broadcasts; seeking is the fallback.
var rolePriority = []Role{RoleBroadcaster, RoleSeeker}

// PrimaryRole selects the presence role for an account from its assigned
// role list. Unrecognized entries are skipped; ok is false when nothing
// usable remains.
func PrimaryRole(roles []string) (Role, bool) {
	assigned := make(map[Role]bool, len(roles))
	for _, s := range roles {
		if r, err := ParseRole(s); err == nil {
			assigned[r] = true
		}
	}
	for _, r := range rolePriority {
		if assigned[r] {
			return r, true
		}
	}
	return "", false
}
