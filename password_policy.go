package auth

import (
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ValidatePasswordStrength enforces the credential policy: at least 8
// characters with uppercase, lowercase, digit, and special characters.
// Go's regexp has no lookahead, so the classes are checked directly.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}

	return nil
}

// PasswordStrength is the same policy packaged as an ozzo rule for payload
// Validate() methods.
func PasswordStrength() validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		if s == "" {
			// Required is a separate rule; empty passes through here.
			return nil
		}
		return ValidatePasswordStrength(s)
	})
}
