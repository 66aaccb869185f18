// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/authrecovery/internal/services/password"
)

func TestHasher_HashAndVerify(t *testing.T) {
	hasher := password.NewHasher()

	digest, err := hasher.Hash("correct horse battery staple")

	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", digest)
	assert.True(t, hasher.Verify("correct horse battery staple", digest))
	assert.False(t, hasher.Verify("wrong", digest))
}

func TestHasher_DistinctDigests(t *testing.T) {
	hasher := password.NewHasher()

	first, err := hasher.Hash("same input")
	require.NoError(t, err)
	second, err := hasher.Hash("same input")
	require.NoError(t, err)

	// bcrypt salts every digest
	assert.NotEqual(t, first, second)
}

func TestValidator_Validate(t *testing.T) {
	validator := password.DefaultValidator()

	tests := []struct {
		name     string
		password string
		wantCode string
	}{
		{"valid", "NewPass123", ""},
		{"too short", "Pass1", "min_length"},
		{"entirely numeric", "12345678", "entirely_numeric"},
		{"empty", "", "min_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.password)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var validationErr password.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantCode, validationErr.Code)
		})
	}
}
