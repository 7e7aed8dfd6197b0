package auth

import (
	"fmt"
	"regexp"
	"unicode"
)

// PasswordPolicy validates password strength. It is pure and stateless.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy returns the policy used when none is configured.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 6}
}

// Validate returns every violated rule at once, not just the first, so
// the caller can show a combined message. An empty slice means the
// password is acceptable.
func (p PasswordPolicy) Validate(password string) []string {
	var violations []string

	if len(password) < p.MinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", p.MinLength))
	}
	if !containsDigit(password) {
		violations = append(violations, "password must contain at least one digit")
	}
	if !containsLetter(password) {
		violations = append(violations, "password must contain at least one letter")
	}

	return violations
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the local@domain.tld shape of an address. No DNS
// or MX verification is performed.
func ValidateEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
