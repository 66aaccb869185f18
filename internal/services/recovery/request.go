// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/authrecovery/internal/models"
	"codeberg.org/oliverandrich/authrecovery/internal/repository"
)

// RequestService creates recovery records and triggers delivery.
type RequestService struct {
	repo     *repository.Repository
	notifier Notifier
	window   time.Duration
}

// NewRequestService creates a new RequestService. A non-positive window
// falls back to DefaultWindow.
func NewRequestService(repo *repository.Repository, notifier Notifier, window time.Duration) *RequestService {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RequestService{
		repo:     repo,
		notifier: notifier,
		window:   window,
	}
}

// RequestResult is the outcome of a recovery request. It carries no
// account-specific data so known and unknown addresses are
// indistinguishable to the caller.
type RequestResult struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// Request creates a fresh recovery record for the account behind the given
// email address and asks the notifier to deliver the code. Prior active
// records of the same kind are invalidated first, so at most one record can
// ever be completed. An unknown address returns the same success shape with
// no side effects.
func (s *RequestService) Request(ctx context.Context, kind models.RecoveryKind, email string) (*RequestResult, error) {
	expiresAt := time.Now().Add(s.window)

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		slog.Debug("recovery requested for unknown address", "kind", kind)
		return &RequestResult{ExpiresAt: expiresAt}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkActiveRecordsUsed(ctx, account.ID, kind); err != nil {
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	record := &models.RecoveryRecord{
		ID:              uuid.NewString(),
		AccountID:       account.ID,
		DeliveryAddress: account.Email,
		Token:           token,
		Kind:            kind,
		ExpiresAt:       expiresAt,
	}
	if err := s.repo.CreateRecoveryRecord(ctx, record); err != nil {
		return nil, err
	}

	code, err := s.notifier.SendRecoveryMessage(ctx, record.DeliveryAddress, record.ID, record.ExpiresAt)
	if err != nil {
		// Delivery failed; remove the record so no orphaned active
		// record blocks the next request.
		if delErr := s.repo.DeleteRecoveryRecord(ctx, record.ID); delErr != nil {
			slog.Error("failed to delete undelivered recovery record", "record_id", record.ID, "error", delErr)
		}
		slog.Warn("recovery delivery failed", "record_id", record.ID, "kind", kind, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if err := s.repo.SetRecoveryCode(ctx, record.ID, code); err != nil {
		if delErr := s.repo.DeleteRecoveryRecord(ctx, record.ID); delErr != nil {
			slog.Error("failed to delete recovery record without code", "record_id", record.ID, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	slog.Info("recovery record created", "record_id", record.ID, "kind", kind, "account_id", account.ID)
	return &RequestResult{ExpiresAt: expiresAt}, nil
}
