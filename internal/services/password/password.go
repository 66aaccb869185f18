// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password provides credential hashing and strength validation.
// The same hasher serves account passwords and security-question answers.
package password

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the cost factor for bcrypt hashing.
const bcryptCost = 10

// Hasher hashes and verifies credentials with bcrypt.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Hash returns the bcrypt digest of a plaintext credential.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether a plaintext credential matches a stored digest.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Validator validates new passwords before they are applied.
type Validator struct {
	MinLength int
}

// DefaultValidator returns a validator with sensible defaults.
func DefaultValidator() *Validator {
	return &Validator{MinLength: 8}
}

// ValidationError describes why a password was rejected.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Validate checks a new password against the configured rules.
func (v *Validator) Validate(password string) error {
	if len(password) < v.MinLength {
		return ValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
		}
	}
	if isEntirelyNumeric(password) {
		return ValidationError{
			Code:    "entirely_numeric",
			Message: "Password cannot be entirely numeric.",
		}
	}
	return nil
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}
