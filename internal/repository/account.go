// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/authrecovery/internal/models"
)

// CreateAccount creates a new account and fills in its generated ID.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, username, password_hash, security_question, security_answer_hash)
		 VALUES (?, ?, ?, ?, ?)`,
		account.Email, account.Username, account.PasswordHash,
		account.SecurityQuestion, account.SecurityAnswerHash)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = id
	return nil
}

// GetAccountByID retrieves an account by its primary key.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by its email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByUsernameOrEmail retrieves an account whose username or email
// equals the given identifier.
func (r *Repository) GetAccountByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT * FROM accounts WHERE username = ? OR email = ?`, identifier, identifier)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}
