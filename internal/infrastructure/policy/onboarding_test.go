package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileOnboardingRule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"empty disables", "", false},
		{"bool expression", `has_license_file && size(license_no) == 18`, false},
		{"syntax error", `has_license_file &&`, true},
		{"unknown variable", `credit_limit > 0`, true},
		{"non bool result", `name + license_no`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileOnboardingRule(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOnboardingRule_Evaluate(t *testing.T) {
	rule, err := CompileOnboardingRule(`has_license_file && size(license_no) == 18 && contact_email.endsWith("@acme.com")`)
	require.NoError(t, err)
	require.True(t, rule.Enabled())

	ctx := context.Background()
	ok, err := rule.Evaluate(ctx, OnboardingInput{
		Name:           "Acme Trading",
		LicenseNo:      "91310115MA1K4ABCDE",
		HasLicenseFile: true,
		ContactEmail:   "ops@acme.com",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rule.Evaluate(ctx, OnboardingInput{
		LicenseNo:      "91310115MA1K4ABCDE",
		HasLicenseFile: false,
		ContactEmail:   "ops@acme.com",
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOnboardingRule_Disabled(t *testing.T) {
	rule, err := CompileOnboardingRule("  ")
	require.NoError(t, err)
	assert.False(t, rule.Enabled())

	ok, err := rule.Evaluate(context.Background(), OnboardingInput{HasLicenseFile: true})
	require.NoError(t, err)
	assert.False(t, ok)

	var nilRule *OnboardingRule
	ok, err = nilRule.Evaluate(context.Background(), OnboardingInput{})
	require.NoError(t, err)
	assert.False(t, ok)
}
