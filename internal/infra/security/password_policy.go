package security

import "strings"

// PasswordPolicyConfig mirrors the password_policy config section.
type PasswordPolicyConfig struct {
	MinLength      int
	MinCharClasses int
	MinZxcvbnScore int
}

// PasswordPolicy implements port.PasswordPolicyValidator by running its rules in order.
type PasswordPolicy struct {
	rules []PasswordRule
}

// NewPasswordPolicy builds the rule chain for cfg.
func NewPasswordPolicy(cfg PasswordPolicyConfig) *PasswordPolicy {
	return NewPasswordPolicyFromRules(
		MinLengthRule(cfg.MinLength),
		RequireCharacterClassesRule(cfg.MinCharClasses),
		RequirePasswordStrengthRule(cfg.MinZxcvbnScore),
	)
}

// NewPasswordPolicyFromRules builds a policy from explicit rules.
func NewPasswordPolicyFromRules(rules ...PasswordRule) *PasswordPolicy {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordPolicy{rules: copied}
}

// Validate returns the first violated rule as a *PasswordValidationError.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		if trimmed := strings.TrimSpace(in); trimmed != "" {
			inputs = append(inputs, trimmed)
		}
	}

	for _, rule := range p.rules {
		if err := rule.Validate(password, inputs); err != nil {
			return err
		}
	}
	return nil
}
