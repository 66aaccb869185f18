// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package recovery implements the account-recovery state machine: request a
// recovery record, verify the delivered code, consume the reset token or
// disclose the username, with attempt limiting and single-use semantics.
package recovery

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	// TokenLength is the number of random bytes in a reset token.
	TokenLength = 32
	// MaxAttempts is the number of failed verifications after which a
	// record becomes terminally unusable.
	MaxAttempts = 5
	// DefaultWindow is the default validity horizon of a recovery record.
	DefaultWindow = time.Hour
)

// Sentinel errors returned by the recovery services. ErrNoMatch is
// deliberately generic: it never distinguishes an unknown address from a
// wrong code or an expired record.
var (
	ErrNoMatch        = errors.New("invalid or expired recovery code")
	ErrLockout        = errors.New("too many attempts, request a new code")
	ErrDeliveryFailed = errors.New("failed to deliver recovery message")
)

// Notifier delivers recovery messages out-of-band. It generates the
// human-facing code as a side effect of delivery and returns it so the
// caller can persist it; delivery failures must be reported, never
// swallowed.
type Notifier interface {
	SendRecoveryMessage(ctx context.Context, address, recordID string, expiresAt time.Time) (code string, err error)
}

// generateToken returns a fresh hex-encoded reset token with
// TokenLength*8 bits of entropy.
func generateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
