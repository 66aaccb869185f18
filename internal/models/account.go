// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Account is a user account subject to recovery. The password hash and the
// optional security answer hash are bcrypt digests and never serialized.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID                 int64     `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	Username           string    `db:"username" json:"username"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	SecurityQuestion   string    `db:"security_question" json:"security_question,omitempty"`
	SecurityAnswerHash string    `db:"security_answer_hash" json:"-"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// HasSecurityQuestion reports whether the account can use the
// security-question recovery path.
func (a *Account) HasSecurityQuestion() bool {
	return a.SecurityQuestion != "" && a.SecurityAnswerHash != ""
}
