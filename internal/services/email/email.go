// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers recovery codes over SMTP.
package email

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"codeberg.org/oliverandrich/authrecovery/internal/config"
)

// CodeLength is the number of digits in a recovery code.
const CodeLength = 6

// Service sends recovery messages via SMTP. It owns code generation: the
// code is minted here, mailed, and returned to the caller for persistence.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{cfg: cfg}, nil
}

// SendRecoveryMessage generates a recovery code, mails it to the address
// and returns the code on success.
func (s *Service) SendRecoveryMessage(ctx context.Context, address, recordID string, expiresAt time.Time) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	subject := "Your account recovery code"
	body := fmt.Sprintf(
		"Your recovery code is: %s\n\nIt expires at %s. If you did not request account recovery, you can ignore this message.\n",
		code, expiresAt.UTC().Format(time.RFC1123))

	if err := s.send(address, subject, body); err != nil {
		return "", err
	}

	return code, nil
}

// GenerateCode returns a random numeric code of CodeLength digits.
func GenerateCode() (string, error) {
	const digits = "0123456789"

	bytes := make([]byte, CodeLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	for i := range bytes {
		bytes[i] = digits[int(bytes[i])%len(digits)]
	}

	return string(bytes), nil
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
