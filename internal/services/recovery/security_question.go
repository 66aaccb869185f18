// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package recovery

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/authrecovery/internal/repository"
	"codeberg.org/oliverandrich/authrecovery/internal/services/password"
)

// SecurityQuestionVerifier checks security-question answers as a fallback
// recovery path. Answers are compared case-insensitively against a bcrypt
// digest of the normalized answer; there is no attempt limiting on this
// path.
type SecurityQuestionVerifier struct {
	repo   *repository.Repository
	hasher *password.Hasher
}

// NewSecurityQuestionVerifier creates a new SecurityQuestionVerifier.
func NewSecurityQuestionVerifier(repo *repository.Repository, hasher *password.Hasher) *SecurityQuestionVerifier {
	return &SecurityQuestionVerifier{
		repo:   repo,
		hasher: hasher,
	}
}

// SecurityQuestionResult identifies the verified account.
type SecurityQuestionResult struct {
	AccountID int64  `json:"account_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Question  string `json:"question"`
}

// NormalizeAnswer lowercases and trims a security answer. The same
// normalization must be applied before hashing the stored answer.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Verify matches the identifier against email or username and checks the
// answer. An unknown identifier, a missing question and a wrong answer all
// yield the same ErrNoMatch; only the logs tell them apart.
func (v *SecurityQuestionVerifier) Verify(ctx context.Context, identifier, answer string) (*SecurityQuestionResult, error) {
	account, err := v.repo.GetAccountByUsernameOrEmail(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		slog.Debug("security question check for unknown identifier")
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, err
	}

	if !account.HasSecurityQuestion() {
		slog.Info("security question not configured", "account_id", account.ID)
		return nil, ErrNoMatch
	}

	if !v.hasher.Verify(NormalizeAnswer(answer), account.SecurityAnswerHash) {
		return nil, ErrNoMatch
	}

	return &SecurityQuestionResult{
		AccountID: account.ID,
		Email:     account.Email,
		Username:  account.Username,
		Question:  account.SecurityQuestion,
	}, nil
}
