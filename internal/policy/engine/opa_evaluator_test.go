package engine

import (
	"context"
	"testing"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_Allowed(t *testing.T) {
	ctx := context.Background()
	e, err := NewOPAEvaluator(ctx, "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	testCases := []struct {
		role       string
		permission string
		want       bool
	}{
		{"admin", PermUsersList, true},
		{"admin", PermUsersRead, true},
		{"admin", PermSessionsRevokeAny, true},
		{"staff", PermUsersList, true},
		{"staff", PermSessionsRevokeAny, false},
		{"student", PermUsersList, false},
		{"employer", PermUsersRead, false},
		{"mentor", PermSessionsRevokeAny, false},
		{"root", PermUsersList, false},
		{"", PermUsersList, false},
		{"admin", "", false},
		{"admin", "users:delete", false},
	}
	for _, tc := range testCases {
		t.Run(tc.role+"/"+tc.permission, func(t *testing.T) {
			got, err := e.Allowed(ctx, tc.role, tc.permission)
			if err != nil {
				t.Fatalf("Allowed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Allowed(%q, %q) = %v, want %v", tc.role, tc.permission, got, tc.want)
			}
		})
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	policy := `package studenthub.authz

default allow := false

allow if input.role == "mentor"
`
	e, err := NewOPAEvaluator(ctx, policy)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if ok, _ := e.Allowed(ctx, "mentor", PermUsersRead); !ok {
		t.Error("custom policy should allow mentor")
	}
	if ok, _ := e.Allowed(ctx, "admin", PermUsersRead); ok {
		t.Error("custom policy should deny admin")
	}
}

func TestNewOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\nallow if {"); err == nil {
		t.Error("NewOPAEvaluator should reject an invalid policy")
	}
}
