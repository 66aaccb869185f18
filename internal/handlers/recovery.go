// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/authrecovery/internal/models"
	"codeberg.org/oliverandrich/authrecovery/internal/services/password"
	"codeberg.org/oliverandrich/authrecovery/internal/services/recovery"
)

// RecoveryHandlers contains handlers for the account-recovery flows.
type RecoveryHandlers struct {
	requests      *recovery.RequestService
	verifications *recovery.VerificationService
	questions     *recovery.SecurityQuestionVerifier
	validate      *validator.Validate
}

// NewRecovery creates a new RecoveryHandlers instance.
func NewRecovery(requests *recovery.RequestService, verifications *recovery.VerificationService, questions *recovery.SecurityQuestionVerifier) *RecoveryHandlers {
	return &RecoveryHandlers{
		requests:      requests,
		verifications: verifications,
		questions:     questions,
		validate:      validator.New(),
	}
}

// bind decodes and validates a request body.
func (h *RecoveryHandlers) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := h.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	return nil
}

// serviceError maps recovery service errors to HTTP responses.
func serviceError(c echo.Context, err error) error {
	var validationErr password.ValidationError
	switch {
	case errors.Is(err, recovery.ErrNoMatch):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid or expired code"})
	case errors.Is(err, recovery.ErrLockout):
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many attempts, request a new code"})
	case errors.Is(err, recovery.ErrDeliveryFailed):
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to send recovery message"})
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": validationErr.Message})
	default:
		slog.Error("recovery handler failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// RequestRecoveryRequest is the request body for starting a recovery.
type RequestRecoveryRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=password username"`
	Email string `json:"email" validate:"required,email"`
}

// RequestRecovery starts a password or username recovery. The response is
// identical whether or not the address belongs to an account.
func (h *RecoveryHandlers) RequestRecovery(c echo.Context) error {
	var req RequestRecoveryRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	result, err := h.requests.Request(c.Request().Context(), models.RecoveryKind(req.Kind), req.Email)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":    "If the address belongs to an account, a recovery code has been sent.",
		"expires_at": result.ExpiresAt,
	})
}

// VerifyCodeRequest is the request body for verifying a password-reset code.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// VerifyCode checks a password-reset code and returns the reset token.
func (h *RecoveryHandlers) VerifyCode(c echo.Context) error {
	var req VerifyCodeRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	token, err := h.verifications.VerifyCode(c.Request().Context(), req.Email, models.KindPassword, req.Code)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// ResetPasswordRequest is the request body for completing a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ResetPassword consumes a reset token and applies the new password.
func (h *RecoveryHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	if err := h.verifications.ConsumeToken(c.Request().Context(), req.Token, req.Password); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

// RecoverUsernameRequest is the request body for recovering a username.
type RecoverUsernameRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// RecoverUsername verifies a username-recovery code and discloses the
// username.
func (h *RecoveryHandlers) RecoverUsername(c echo.Context) error {
	var req RecoverUsernameRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	username, err := h.verifications.DiscloseUsername(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"username": username})
}

// SecurityQuestionRequest is the request body for the security-question path.
type SecurityQuestionRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

// SecurityQuestion verifies a security-question answer.
func (h *RecoveryHandlers) SecurityQuestion(c echo.Context) error {
	var req SecurityQuestionRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	result, err := h.questions.Verify(c.Request().Context(), req.Identifier, req.Answer)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
