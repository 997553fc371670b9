package access

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"owasp-controls-demo/backend/internal/decision"
	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/logging"
)

const policyQuery = "data.owasp.access.allow"

// DefaultPolicy is the owner-or-admin rule expressed in Rego.
const DefaultPolicy = `package owasp.access

default allow := false

allow if {
	input.requestor.id == input.resource.owner_id
}

allow if {
	input.requestor.role == "admin"
}
`

// RegoGuard evaluates an OPA Rego policy. The policy is compiled once at construction.
// Evaluation failures deny.
type RegoGuard struct {
	query  rego.PreparedEvalQuery
	logger logging.Logger
}

// NewRegoGuard compiles policy (DefaultPolicy when empty). The policy must define
// data.owasp.access.allow as a boolean.
func NewRegoGuard(ctx context.Context, policy string, logger logging.Logger) (*RegoGuard, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	if logger == nil {
		logger = logging.Discard()
	}
	compiler, err := ast.CompileModules(map[string]string{"access.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare access policy: %w", err)
	}
	return &RegoGuard{query: q, logger: logger}, nil
}

// HealthCheck evaluates the compiled policy against a fixed input. Returns nil on success.
func (g *RegoGuard) HealthCheck(ctx context.Context) error {
	if _, err := g.eval(ctx, buildInput(&domain.Identity{ID: "health", Role: domain.RoleStandard}, "health")); err != nil {
		return fmt.Errorf("eval access policy: %w", err)
	}
	return nil
}

// Authorize implements Guard.
func (g *RegoGuard) Authorize(ctx context.Context, requestor *domain.Identity, resourceOwnerID string) error {
	if requestor == nil {
		return decision.ErrNotAuthenticated
	}
	allow, err := g.eval(ctx, buildInput(requestor, resourceOwnerID))
	if err != nil {
		g.logger.Warn(ctx, "access policy evaluation failed, denying", "error", err)
		return decision.ErrUnauthorized
	}
	if !allow {
		return decision.ErrUnauthorized
	}
	return nil
}

func (g *RegoGuard) eval(ctx context.Context, input map[string]interface{}) (bool, error) {
	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	allow, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy result is %T, want bool", rs[0].Expressions[0].Value)
	}
	return allow, nil
}

func buildInput(requestor *domain.Identity, resourceOwnerID string) map[string]interface{} {
	return map[string]interface{}{
		"requestor": map[string]interface{}{
			"id":   requestor.ID,
			"role": string(requestor.Role),
		},
		"resource": map[string]interface{}{
			"owner_id": resourceOwnerID,
		},
	}
}
