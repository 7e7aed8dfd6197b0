package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := DefaultPasswordPolicy()

	t.Run("acceptable password", func(t *testing.T) {
		assert.Empty(t, policy.Validate("pw1234"))
	})

	t.Run("too short", func(t *testing.T) {
		violations := policy.Validate("a1")
		assert.Equal(t, []string{"password must be at least 6 characters"}, violations)
	})

	t.Run("missing digit", func(t *testing.T) {
		violations := policy.Validate("abcdef")
		assert.Equal(t, []string{"password must contain at least one digit"}, violations)
	})

	t.Run("missing letter", func(t *testing.T) {
		violations := policy.Validate("123456")
		assert.Equal(t, []string{"password must contain at least one letter"}, violations)
	})

	t.Run("all rules violated at once", func(t *testing.T) {
		violations := policy.Validate("!!")
		assert.Len(t, violations, 3)
	})

	t.Run("custom minimum length", func(t *testing.T) {
		strict := PasswordPolicy{MinLength: 10}
		violations := strict.Validate("pw1234")
		assert.Equal(t, []string{"password must be at least 10 characters"}, violations)
	})
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"bob.smith+tag@sub.example.co.uk",
		"x_1%@domain.io",
	}
	for _, addr := range valid {
		assert.True(t, ValidateEmail(addr), addr)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"alice@",
		"alice@example",
		"alice example@example.com",
	}
	for _, addr := range invalid {
		assert.False(t, ValidateEmail(addr), addr)
	}
}
