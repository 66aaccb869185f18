// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package recovery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/authrecovery/internal/models"
	"codeberg.org/oliverandrich/authrecovery/internal/repository"
	"codeberg.org/oliverandrich/authrecovery/internal/services/recovery"
	"codeberg.org/oliverandrich/authrecovery/internal/testutil"
)

func countActiveRecords(t *testing.T, repo *repository.Repository, accountID int64, kind models.RecoveryKind) int64 {
	t.Helper()
	var count int64
	err := repo.DB().Get(&count,
		`SELECT count(*) FROM recovery_records WHERE account_id = ? AND kind = ? AND used = 0 AND expires_at > ?`,
		accountID, kind, time.Now())
	require.NoError(t, err)
	return count
}

func TestRequest_CreatesRecord(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	notifier := &testutil.StubNotifier{}
	svc := recovery.NewRequestService(repo, notifier, time.Hour)

	account := testutil.NewTestAccount(t, repo, "test@example.com", "testuser", "Password1", "", "")

	result, err := svc.Request(ctx, models.KindPassword, "test@example.com")

	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, 5*time.Second)

	delivery := notifier.LastDelivery(t)
	assert.Equal(t, "test@example.com", delivery.Address)

	record, err := repo.GetRecoveryRecordByID(ctx, delivery.RecordID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, record.AccountID)
	assert.Equal(t, delivery.Code, record.Code)
	assert.Len(t, record.Token, 2*recovery.TokenLength)
	assert.False(t, record.Used)
	assert.Zero(t, record.Attempts)
}

func TestRequest_UnknownAddressIndistinguishable(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	notifier := &testutil.StubNotifier{}
	svc := recovery.NewRequestService(repo, notifier, time.Hour)

	testutil.NewTestAccount(t, repo, "known@example.com", "testuser", "Password1", "", "")

	known, err := svc.Request(ctx, models.KindPassword, "known@example.com")
	require.NoError(t, err)

	unknown, err := svc.Request(ctx, models.KindPassword, "unknown@example.com")
	require.NoError(t, err)

	// Same shape, same horizon, no account-specific data
	assert.WithinDuration(t, known.ExpiresAt, unknown.ExpiresAt, 5*time.Second)

	// No side effects for the unknown address
	assert.Len(t, notifier.Sent, 1)
	var count int64
	require.NoError(t, repo.DB().Get(&count,
		`SELECT count(*) FROM recovery_records WHERE delivery_address = ?`, "unknown@example.com"))
	assert.Zero(t, count)
}

func TestRequest_InvalidatesPriorRecords(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	notifier := &testutil.StubNotifier{}
	svc := recovery.NewRequestService(repo, notifier, time.Hour)

	account := testutil.NewTestAccount(t, repo, "test@example.com", "testuser", "Password1", "", "")

	_, err := svc.Request(ctx, models.KindPassword, "test@example.com")
	require.NoError(t, err)
	firstID := notifier.LastDelivery(t).RecordID

	_, err = svc.Request(ctx, models.KindPassword, "test@example.com")
	require.NoError(t, err)
	secondID := notifier.LastDelivery(t).RecordID

	require.NotEqual(t, firstID, secondID)
	assert.Equal(t, int64(1), countActiveRecords(t, repo, account.ID, models.KindPassword))

	first, err := repo.GetRecoveryRecordByID(ctx, firstID)
	require.NoError(t, err)
	assert.True(t, first.Used)
}

func TestRequest_KindsDoNotCrossInvalidate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	notifier := &testutil.StubNotifier{}
	svc := recovery.NewRequestService(repo, notifier, time.Hour)

	account := testutil.NewTestAccount(t, repo, "test@example.com", "testuser", "Password1", "", "")

	_, err := svc.Request(ctx, models.KindUsername, "test@example.com")
	require.NoError(t, err)

	_, err = svc.Request(ctx, models.KindPassword, "test@example.com")
	require.NoError(t, err)

	assert.Equal(t, int64(1), countActiveRecords(t, repo, account.ID, models.KindUsername))
	assert.Equal(t, int64(1), countActiveRecords(t, repo, account.ID, models.KindPassword))
}

func TestRequest_DeliveryFailureDeletesRecord(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	notifier := &testutil.StubNotifier{FailNext: true}
	svc := recovery.NewRequestService(repo, notifier, time.Hour)

	account := testutil.NewTestAccount(t, repo, "test@example.com", "testuser", "Password1", "", "")

	_, err := svc.Request(ctx, models.KindPassword, "test@example.com")
	assert.ErrorIs(t, err, recovery.ErrDeliveryFailed)

	// No orphaned record survives the failed delivery
	assert.Zero(t, countActiveRecords(t, repo, account.ID, models.KindPassword))

	// A fresh request succeeds afterwards
	_, err = svc.Request(ctx, models.KindPassword, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), countActiveRecords(t, repo, account.ID, models.KindPassword))
}

func TestNewRequestService_DefaultWindow(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	notifier := &testutil.StubNotifier{}
	svc := recovery.NewRequestService(repo, notifier, 0)

	testutil.NewTestAccount(t, repo, "test@example.com", "testuser", "Password1", "", "")

	result, err := svc.Request(ctx, models.KindPassword, "test@example.com")

	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(recovery.DefaultWindow), result.ExpiresAt, 5*time.Second)
}
