package user

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"BROADCASTER", RoleBroadcaster, false},
		{"trabajador", RoleBroadcaster, false},
		{"  Trabajador ", RoleBroadcaster, false},
		{"worker", RoleBroadcaster, false},
		{"SEEKER", RoleSeeker, false},
		{"cliente", RoleSeeker, false},
		{"client", RoleSeeker, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseRole(%q) expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseRole(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestPrimaryRoleSelectsByPriorityNotPosition(t *testing.T) {
	cases := []struct {
		name   string
		roles  []string
		want   Role
		wantOK bool
	}{
		{"broadcaster only", []string{"trabajador"}, RoleBroadcaster, true},
		{"seeker only", []string{"cliente"}, RoleSeeker, true},
		{"broadcaster first", []string{"trabajador", "cliente"}, RoleBroadcaster, true},
		{"broadcaster last still wins", []string{"cliente", "trabajador"}, RoleBroadcaster, true},
		{"unknown entries skipped", []string{"admin", "cliente"}, RoleSeeker, true},
		{"nothing usable", []string{"admin", "moderator"}, "", false},
		{"empty", nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PrimaryRole(tc.roles)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("PrimaryRole(%v) = %v, %v, want %v, %v", tc.roles, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
