// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage and services into the HTTP
// server and runs it with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/authrecovery/internal/config"
	"codeberg.org/oliverandrich/authrecovery/internal/database"
	"codeberg.org/oliverandrich/authrecovery/internal/handlers"
	"codeberg.org/oliverandrich/authrecovery/internal/repository"
	"codeberg.org/oliverandrich/authrecovery/internal/services/email"
	"codeberg.org/oliverandrich/authrecovery/internal/services/password"
	"codeberg.org/oliverandrich/authrecovery/internal/services/recovery"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"recovery_window", cfg.Recovery.Window(),
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	repo := repository.New(db)

	// Notifier: real SMTP when configured, logging fallback otherwise.
	var notifier recovery.Notifier
	if cfg.SMTP.Host != "" {
		notifier, err = email.NewService(&cfg.SMTP)
		if err != nil {
			return fmt.Errorf("failed to create email service: %w", err)
		}
	} else {
		slog.Warn("SMTP not configured, recovery codes will be logged")
		notifier = email.NewLogNotifier()
	}

	// Services
	hasher := password.NewHasher()
	requests := recovery.NewRequestService(repo, notifier, cfg.Recovery.Window())
	verifications := recovery.NewVerificationService(repo, hasher, password.DefaultValidator())
	questions := recovery.NewSecurityQuestionVerifier(repo, hasher)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e)
	setupRoutes(e, repo, requests, verifications, questions)

	return startWithGracefulShutdown(ctx, e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, requests *recovery.RequestService, verifications *recovery.VerificationService, questions *recovery.SecurityQuestionVerifier) {
	h := handlers.New(repo)
	rh := handlers.NewRecovery(requests, verifications, questions)

	e.GET("/health", h.Health)

	g := e.Group("/auth/recovery")
	g.POST("/request", rh.RequestRecovery)
	g.POST("/verify-code", rh.VerifyCode)
	g.POST("/reset-password", rh.ResetPassword)
	g.POST("/username", rh.RecoverUsername)
	g.POST("/security-question", rh.SecurityQuestion)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
