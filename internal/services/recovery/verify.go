// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package recovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/authrecovery/internal/models"
	"codeberg.org/oliverandrich/authrecovery/internal/repository"
	"codeberg.org/oliverandrich/authrecovery/internal/services/password"
)

// VerificationService validates presented codes and tokens against stored
// recovery records and gates the follow-up step.
type VerificationService struct {
	repo      *repository.Repository
	hasher    *password.Hasher
	validator *password.Validator
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(repo *repository.Repository, hasher *password.Hasher, validator *password.Validator) *VerificationService {
	if validator == nil {
		validator = password.DefaultValidator()
	}
	return &VerificationService{
		repo:      repo,
		hasher:    hasher,
		validator: validator,
	}
}

// VerifyCode checks a delivered code against the active record for the given
// address and kind. On a mismatch every active record for that pair gets its
// attempt counter bumped, so guess storms exhaust the record even when they
// never hit the right code. Mismatches only count; the record stays live, and
// a matching code presented after the limit is what surfaces the lockout and
// terminally consumes the record. On success the reset token is returned
// without consuming the record; verification and consumption stay separate
// steps.
func (s *VerificationService) VerifyCode(ctx context.Context, email string, kind models.RecoveryKind, code string) (string, error) {
	now := time.Now()

	record, err := s.repo.GetActiveRecordByCode(ctx, email, kind, code, now)
	if errors.Is(err, repository.ErrNotFound) {
		if err := s.repo.IncrementActiveAttempts(ctx, email, kind, now); err != nil {
			return "", err
		}
		return "", ErrNoMatch
	}
	if err != nil {
		return "", err
	}

	if record.Attempts >= MaxAttempts {
		if _, err := s.repo.MarkRecordUsed(ctx, record.ID); err != nil {
			return "", err
		}
		slog.Info("recovery record locked out", "record_id", record.ID, "kind", kind)
		return "", ErrLockout
	}

	return record.Token, nil
}

// ConsumeToken completes a password reset: it validates and hashes the new
// password and applies it together with the mark-used flag in a single
// transaction, so a token is spendable at most once.
func (s *VerificationService) ConsumeToken(ctx context.Context, token, newPassword string) error {
	if err := s.validator.Validate(newPassword); err != nil {
		return err
	}

	now := time.Now()
	record, err := s.repo.GetActiveRecordByToken(ctx, token, models.KindPassword, now)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoMatch
	}
	if err != nil {
		return err
	}

	account, err := s.repo.GetAccountByID(ctx, record.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		// Integrity failure: the owning account vanished. Surfaced as a
		// plain no-match, logged as unexpected.
		slog.Error("recovery record references missing account", "record_id", record.ID, "account_id", record.AccountID)
		return ErrNoMatch
	}
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.ConsumePasswordReset(ctx, record.ID, account.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoMatch
		}
		return err
	}

	slog.Info("password reset completed", "record_id", record.ID, "account_id", account.ID)
	return nil
}

// DiscloseUsername verifies a username-recovery code and, on success,
// consumes the record in the same step and returns the account's username.
func (s *VerificationService) DiscloseUsername(ctx context.Context, email, code string) (string, error) {
	now := time.Now()

	record, err := s.repo.GetActiveRecordByCode(ctx, email, models.KindUsername, code, now)
	if errors.Is(err, repository.ErrNotFound) {
		if err := s.repo.IncrementActiveAttempts(ctx, email, models.KindUsername, now); err != nil {
			return "", err
		}
		return "", ErrNoMatch
	}
	if err != nil {
		return "", err
	}

	if record.Attempts >= MaxAttempts {
		if _, err := s.repo.MarkRecordUsed(ctx, record.ID); err != nil {
			return "", err
		}
		slog.Info("recovery record locked out", "record_id", record.ID, "kind", models.KindUsername)
		return "", ErrLockout
	}

	account, err := s.repo.GetAccountByID(ctx, record.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		slog.Error("recovery record references missing account", "record_id", record.ID, "account_id", record.AccountID)
		return "", ErrNoMatch
	}
	if err != nil {
		return "", err
	}

	ok, err := s.repo.MarkRecordUsed(ctx, record.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		// Lost the race against a concurrent disclosure.
		return "", ErrNoMatch
	}

	return account.Username, nil
}
