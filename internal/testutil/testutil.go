// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/authrecovery/internal/database"
	"codeberg.org/oliverandrich/authrecovery/internal/models"
	"codeberg.org/oliverandrich/authrecovery/internal/repository"
	"codeberg.org/oliverandrich/authrecovery/internal/services/password"
	"codeberg.org/oliverandrich/authrecovery/internal/services/recovery"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount creates a test account. The password and, when question is
// non-empty, the normalized security answer are hashed with bcrypt.
func NewTestAccount(t *testing.T, repo *repository.Repository, email, username, plaintext string, question, answer string) *models.Account {
	t.Helper()
	ctx := context.Background()
	hasher := password.NewHasher()

	passwordHash, err := hasher.Hash(plaintext)
	require.NoError(t, err)

	account := &models.Account{
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
	}
	if question != "" {
		answerHash, hashErr := hasher.Hash(recovery.NormalizeAnswer(answer))
		require.NoError(t, hashErr)
		account.SecurityQuestion = question
		account.SecurityAnswerHash = answerHash
	}

	require.NoError(t, repo.CreateAccount(ctx, account))
	return account
}

// StubNotifier is a Notifier for tests. It records deliveries and can be
// told to fail or to assign a fixed code.
type StubNotifier struct {
	mu        sync.Mutex
	FailNext  bool
	FixedCode string
	Sent      []StubDelivery
}

// StubDelivery records one delivery attempt.
type StubDelivery struct {
	Address   string
	RecordID  string
	Code      string
	ExpiresAt time.Time
}

// SendRecoveryMessage implements recovery.Notifier.
func (n *StubNotifier) SendRecoveryMessage(_ context.Context, address, recordID string, expiresAt time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.FailNext {
		n.FailNext = false
		return "", errDeliveryRefused
	}

	code := n.FixedCode
	if code == "" {
		code = "123456"
	}
	n.Sent = append(n.Sent, StubDelivery{
		Address:   address,
		RecordID:  recordID,
		Code:      code,
		ExpiresAt: expiresAt,
	})
	return code, nil
}

// LastDelivery returns the most recent delivery, failing the test when none
// happened.
func (n *StubNotifier) LastDelivery(t *testing.T) StubDelivery {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.Sent)
	return n.Sent[len(n.Sent)-1]
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

var errDeliveryRefused = errRefused{}

type errRefused struct{}

func (errRefused) Error() string { return "smtp: delivery refused" }
