package password

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost balances hashing time against brute-force resistance.
const bcryptCost = 12

// Requirements defines password complexity requirements
type Requirements struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
}

// DefaultRequirements returns the default complexity requirements
func DefaultRequirements() *Requirements {
	return &Requirements{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	}
}

// Validate checks the password against complexity requirements and
// returns a human-readable reason when it fails.
func Validate(password string, req *Requirements) error {
	if req == nil {
		req = DefaultRequirements()
	}

	if len(password) < req.MinLength {
		return fmt.Errorf("password must be at least %d characters", req.MinLength)
	}

	var hasUpper, hasLower, hasNumber bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}

	if req.RequireUppercase && !hasUpper {
		return fmt.Errorf("password must contain an uppercase letter")
	}
	if req.RequireLowercase && !hasLower {
		return fmt.Errorf("password must contain a lowercase letter")
	}
	if req.RequireNumber && !hasNumber {
		return fmt.Errorf("password must contain a number")
	}

	return nil
}

// Hash hashes a password with bcrypt
func Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares a plaintext password against a bcrypt hash
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
