// Package policy evaluates configurable business rules written in CEL.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// OnboardingInput is what an onboarding rule can see of a submitted company
type OnboardingInput struct {
	Name           string
	LicenseNo      string
	HasLicenseFile bool
	ContactEmail   string
}

func (in OnboardingInput) activation() map[string]any {
	return map[string]any{
		"name":             in.Name,
		"license_no":       in.LicenseNo,
		"has_license_file": in.HasLicenseFile,
		"contact_email":    in.ContactEmail,
	}
}

// OnboardingRule decides whether a submitted company is approved without review.
// The zero rule approves nothing.
type OnboardingRule struct {
	expr string
	prg  cel.Program
}

// costLimit bounds the work a single evaluation may do
const costLimit = 10_000

func onboardingEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("license_no", cel.StringType),
		cel.Variable("has_license_file", cel.BoolType),
		cel.Variable("contact_email", cel.StringType),
	)
}

// CompileOnboardingRule parses and type-checks expr. An empty expression
// disables auto approval.
func CompileOnboardingRule(expr string) (*OnboardingRule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &OnboardingRule{}, nil
	}
	env, err := onboardingEnv()
	if err != nil {
		return nil, fmt.Errorf("onboarding rule env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("onboarding rule %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("onboarding rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast,
		cel.CostLimit(costLimit),
		cel.InterruptCheckFrequency(100),
	)
	if err != nil {
		return nil, fmt.Errorf("onboarding rule %q: %w", expr, err)
	}
	return &OnboardingRule{expr: expr, prg: prg}, nil
}

// Enabled reports whether the rule can approve anything
func (r *OnboardingRule) Enabled() bool {
	return r != nil && r.prg != nil
}

// Expression returns the source expression
func (r *OnboardingRule) Expression() string {
	if r == nil {
		return ""
	}
	return r.expr
}

// Evaluate runs the rule. A disabled rule returns false.
func (r *OnboardingRule) Evaluate(ctx context.Context, in OnboardingInput) (bool, error) {
	if !r.Enabled() {
		return false, nil
	}
	out, _, err := r.prg.ContextEval(ctx, in.activation())
	if err != nil {
		return false, fmt.Errorf("evaluate onboarding rule: %w", err)
	}
	approved, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("onboarding rule returned %T", out.Value())
	}
	return approved, nil
}
