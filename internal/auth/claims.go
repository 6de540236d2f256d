package auth

import (
	"strconv"
	"time"

	"workmap/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the canonical token payload. Roles carries every role
// assigned to the account ("trabajador", "cliente"); the client picks
// the presence role through user.PrimaryRole, never by position.
type Claims struct {
	Roles []string `json:"roles"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs claims for a logged-in account.
func NewUserClaims(userID int64, roles []string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Roles: roles,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// UserID parses the subject back into the numeric account ID.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Identity resolves the claims into the session's read-only identity.
// Returns nil when no recognized role is assigned: the session then runs
// with presence publishing disabled.
func (c *Claims) Identity() *user.Identity {
	id, err := c.UserID()
	if err != nil {
		return nil
	}
	role, ok := user.PrimaryRole(c.Roles)
	if !ok {
		return nil
	}
	return &user.Identity{ID: id, Role: role}
}
