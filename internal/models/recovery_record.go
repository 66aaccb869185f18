// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// RecoveryKind discriminates password-reset from username-recovery records.
// Records of different kinds never satisfy each other's lookups.
type RecoveryKind string

const (
	KindPassword RecoveryKind = "password"
	KindUsername RecoveryKind = "username"
)

// Valid reports whether k is one of the known recovery kinds.
func (k RecoveryKind) Valid() bool {
	return k == KindPassword || k == KindUsername
}

// RecoveryRecord is a single-use, expiring, attempt-limited row representing
// one outstanding password-reset or username-recovery attempt.
//
// DeliveryAddress snapshots the account email at creation time so a later
// address change does not redirect an in-flight recovery. Token is the long
// opaque secret for the final consumption step; Code is the short secret
// delivered out-of-band and stays empty until the notifier assigns it.
type RecoveryRecord struct { //nolint:govet // fieldalignment: readability over optimization
	ID              string       `db:"id" json:"id"`
	AccountID       int64        `db:"account_id" json:"account_id"`
	DeliveryAddress string       `db:"delivery_address" json:"delivery_address"`
	Token           string       `db:"token" json:"-"`
	Code            string       `db:"code" json:"-"`
	Kind            RecoveryKind `db:"kind" json:"kind"`
	ExpiresAt       time.Time    `db:"expires_at" json:"expires_at"`
	Attempts        int64        `db:"attempts" json:"attempts"`
	Used            bool         `db:"used" json:"used"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// Active reports whether the record can still be matched: not consumed and
// not past its expiry horizon.
func (r *RecoveryRecord) Active(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}
