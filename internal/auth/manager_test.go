package auth

import (
	"testing"
	"time"

	"workmap/internal/domain/user"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)

	token, _, err := mgr.IssueUserToken(42, []string{"trabajador", "cliente"})
	if err != nil {
		t.Fatalf("IssueUserToken: %v", err)
	}

	claims, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("UserID() = %d, %v, want 42", id, err)
	}
	if len(claims.Roles) != 2 {
		t.Errorf("roles = %v, want both preserved", claims.Roles)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, _, err := NewManager("secret-a", time.Hour).IssueUserToken(1, []string{"cliente"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager("secret-b", time.Hour).ParseAndValidate(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, _, err := NewManager("test-secret", -time.Minute).IssueUserToken(1, []string{"cliente"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager("test-secret", time.Hour).ParseAndValidate(token); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestGarbageRejected(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	for _, bad := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := mgr.ParseAndValidate(bad); err == nil {
			t.Errorf("ParseAndValidate(%q) accepted garbage", bad)
		}
	}
}

func TestEmptySecretPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewManager with empty secret did not panic")
		}
	}()
	NewManager("   ", time.Hour)
}

func TestParseUnverifiedReadsIdentity(t *testing.T) {
	token, _, err := NewManager("server-only-secret", time.Hour).IssueUserToken(7, []string{"cliente", "trabajador"})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseUnverified(token)
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	ident := claims.Identity()
	if ident == nil {
		t.Fatal("Identity() = nil for valid claims")
	}
	if ident.ID != 7 || ident.Role != user.RoleBroadcaster {
		t.Errorf("identity = %+v, want ID 7 with broadcaster priority", ident)
	}
}

func TestIdentityNilWithoutUsableRole(t *testing.T) {
	claims := NewUserClaims(9, []string{"admin"}, time.Hour)
	if ident := claims.Identity(); ident != nil {
		t.Errorf("Identity() = %+v, want nil when no role is recognized", ident)
	}
}
