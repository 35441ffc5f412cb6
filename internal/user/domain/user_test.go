package domain

import "testing"

func TestUser_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		user    User
		wantErr bool
		role    Role
	}{
		{"defaults role", User{Email: "a@x.com", PasswordHash: "h"}, false, RoleStudent},
		{"keeps role", User{Email: "a@x.com", PasswordHash: "h", Role: RoleMentor}, false, RoleMentor},
		{"missing email", User{PasswordHash: "h"}, true, ""},
		{"missing hash", User{Email: "a@x.com"}, true, ""},
		{"unknown role", User{Email: "a@x.com", PasswordHash: "h", Role: "root"}, true, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			err := u.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && u.Role != tc.role {
				t.Errorf("Role = %q, want %q", u.Role, tc.role)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []Role{"", "Admin", "superuser"} {
		if r.Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}
