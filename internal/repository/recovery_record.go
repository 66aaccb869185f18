// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/authrecovery/internal/models"
)

// CreateRecoveryRecord inserts a new recovery record.
func (r *Repository) CreateRecoveryRecord(ctx context.Context, record *models.RecoveryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recovery_records (id, account_id, delivery_address, token, code, kind, expires_at, attempts, used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.AccountID, record.DeliveryAddress, record.Token,
		record.Code, record.Kind, record.ExpiresAt, record.Attempts, record.Used)
	return err
}

// GetRecoveryRecordByID retrieves a record by its primary key regardless of state.
func (r *Repository) GetRecoveryRecordByID(ctx context.Context, id string) (*models.RecoveryRecord, error) {
	var record models.RecoveryRecord
	err := r.db.GetContext(ctx, &record, `SELECT * FROM recovery_records WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &record, nil
}

// GetActiveRecordByCode retrieves the active record matching delivery
// address, kind and exact code. Records with an unassigned code never match.
func (r *Repository) GetActiveRecordByCode(ctx context.Context, address string, kind models.RecoveryKind, code string, now time.Time) (*models.RecoveryRecord, error) {
	var record models.RecoveryRecord
	err := r.db.GetContext(ctx, &record,
		`SELECT * FROM recovery_records
		 WHERE delivery_address = ? AND kind = ? AND code = ? AND code != ''
		   AND used = 0 AND expires_at > ?`,
		address, kind, code, now)
	if err != nil {
		return nil, wrapError(err)
	}
	return &record, nil
}

// GetActiveRecordByToken retrieves the active record for a reset token.
func (r *Repository) GetActiveRecordByToken(ctx context.Context, token string, kind models.RecoveryKind, now time.Time) (*models.RecoveryRecord, error) {
	var record models.RecoveryRecord
	err := r.db.GetContext(ctx, &record,
		`SELECT * FROM recovery_records
		 WHERE token = ? AND kind = ? AND used = 0 AND expires_at > ?`,
		token, kind, now)
	if err != nil {
		return nil, wrapError(err)
	}
	return &record, nil
}

// SetRecoveryCode assigns the delivered code to a record.
func (r *Repository) SetRecoveryCode(ctx context.Context, id, code string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recovery_records SET code = ? WHERE id = ?`, code, id)
	return err
}

// MarkRecordUsed marks a single record as consumed. The used=0 guard makes
// this a compare-and-set: it returns false when the record was already
// consumed by a concurrent caller.
func (r *Repository) MarkRecordUsed(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recovery_records SET used = 1 WHERE id = ? AND used = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkActiveRecordsUsed invalidates every active record for an account and
// kind. Called before creating a fresh record so at most one stays active.
func (r *Repository) MarkActiveRecordsUsed(ctx context.Context, accountID int64, kind models.RecoveryKind) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recovery_records SET used = 1 WHERE account_id = ? AND kind = ? AND used = 0`,
		accountID, kind)
	return err
}

// IncrementActiveAttempts bumps the attempt counter on every active record
// for a delivery address and kind. The increment happens inside the UPDATE,
// so concurrent wrong guesses never lose a count.
func (r *Repository) IncrementActiveAttempts(ctx context.Context, address string, kind models.RecoveryKind, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recovery_records SET attempts = attempts + 1
		 WHERE delivery_address = ? AND kind = ? AND used = 0 AND expires_at > ?`,
		address, kind, now)
	return err
}

// DeleteRecoveryRecord removes a record. Used only as compensation when
// delivery fails right after creation.
func (r *Repository) DeleteRecoveryRecord(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recovery_records WHERE id = ?`, id)
	return err
}

// DeleteExpiredRecoveryRecords removes records past their expiry horizon.
func (r *Repository) DeleteExpiredRecoveryRecords(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recovery_records WHERE expires_at < ?`, now)
	return err
}

// ConsumePasswordReset applies a new password hash and marks the record
// used in one transaction. The mark-used half carries a used=0 guard, so a
// token that was consumed concurrently rolls the password change back and
// reports ErrNotFound.
func (r *Repository) ConsumePasswordReset(ctx context.Context, recordID string, accountID int64, passwordHash string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, accountID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE recovery_records SET used = 1 WHERE id = ? AND used = 0`, recordID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
