package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const defaultPolicyQuery = "data.studenthub.authz.allow"

// Default Rego policy mapping the fixed account roles to permissions.
const defaultRegoPolicy = `package studenthub.authz

default allow := false

role_permissions := {
	"admin": ["users:list", "users:read", "sessions:revoke_any"],
	"staff": ["users:list", "users:read"],
	"mentor": [],
	"employer": [],
	"student": [],
}

allow if {
	some p in role_permissions[input.role]
	p == input.permission
}
`

// OPAEvaluator evaluates role permissions using OPA Rego.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (the default policy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = defaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(defaultPolicyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// Allowed evaluates the allow rule for role and permission.
func (e *OPAEvaluator) Allowed(ctx context.Context, role, permission string) (bool, error) {
	if role == "" || permission == "" {
		return false, nil
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":       role,
		"permission": permission,
	}))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}

// HealthCheck verifies that the prepared policy evaluates. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	if _, err := e.Allowed(ctx, "admin", PermUsersList); err != nil {
		return err
	}
	return nil
}
