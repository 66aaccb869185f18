// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"
	"time"
)

// LogNotifier logs recovery codes instead of sending mail. It is used when
// no SMTP host is configured, so the server stays usable in development.
type LogNotifier struct{}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// SendRecoveryMessage generates a code and logs it.
func (n *LogNotifier) SendRecoveryMessage(_ context.Context, address, recordID string, expiresAt time.Time) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	slog.Info("recovery message (not sent, SMTP disabled)",
		"to", address,
		"record_id", recordID,
		"code", code,
		"expires_at", expiresAt,
	)

	return code, nil
}
