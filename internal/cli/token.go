package cli

import (
	"fmt"
	"time"

	"workmap/internal/auth"
	"workmap/internal/domain/user"
)

// GenerateUserToken mints a short-lived JWT for a seeded user. Dev-only;
// do not call it from production code paths.
func GenerateUserToken(secret string, userID int64, roleStr string) (string, *auth.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}

	mgr := auth.NewManager(secret, 2*time.Hour)

	token, claims, err := mgr.IssueUserToken(userID, []string{role.String()})
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	return token, claims, nil
}
