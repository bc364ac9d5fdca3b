package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/walkingapp/walking-api/app"
	"github.com/walkingapp/walking-api/config"
	"github.com/walkingapp/walking-api/handlers"
	"github.com/walkingapp/walking-api/internal/observability"
	"github.com/walkingapp/walking-api/repositories/postgres"
	"github.com/walkingapp/walking-api/routes"
	"github.com/walkingapp/walking-api/supabase"
	"go.uber.org/zap"
)

// runServe starts the HTTP server and blocks until SIGINT/SIGTERM or a fatal
// server error.
func runServe(ctx context.Context) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting walking-api",
		zap.String("version", handlers.Version),
		zap.String("environment", cfg.Environment),
		zap.String("database", cfg.Database.LogString()))

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			logger.Error("failed to close dependencies", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           routes.SetupRoutes(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.Server.TLS.Enabled))
		var err error
		if cfg.Server.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

// runMigrate applies pending schema migrations.
func runMigrate(ctx context.Context) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}
	if cfg.Database.IsMemory() {
		return errors.New("the in-memory backend has no schema to migrate")
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return postgres.RunMigrations(cfg.Database, logger)
}

func loadTrust() func() (supabase.TrustConfig, error) {
	return func() (supabase.TrustConfig, error) {
		cfg := config.LoadSupabase()
		return supabase.NewTrustConfig(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	}
}

// runTokenMint signs a token for subject and writes it to w.
func runTokenMint(w io.Writer, trust func() (supabase.TrustConfig, error), subject, email string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	cfg, err := trust()
	if err != nil {
		return err
	}

	token, err := supabase.NewSigner(cfg).Sign(supabase.TokenOptions{
		Subject: subject,
		Email:   email,
		TTL:     ttl,
	})
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

type verifiedToken struct {
	Sub       string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  string `json:"issued_at,omitempty"`
	ExpiresAt string `json:"expires_at"`
}

// runTokenVerify verifies token and writes the resulting identity as JSON.
// A rejected token is reported with its failure kind only.
func runTokenVerify(ctx context.Context, w io.Writer, trust func() (supabase.TrustConfig, error), token string) error {
	cfg, err := trust()
	if err != nil {
		return err
	}

	identity, err := supabase.NewVerifier(cfg).VerifyToken(ctx, token)
	if err != nil {
		if kind, ok := supabase.KindOf(err); ok {
			return fmt.Errorf("token rejected: %s", kind)
		}
		return fmt.Errorf("token rejected: %w", err)
	}

	out := verifiedToken{
		Sub:       identity.SubjectID,
		Email:     identity.Email,
		Role:      identity.Role,
		SessionID: identity.SessionID,
		ExpiresAt: identity.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if !identity.IssuedAt.IsZero() {
		out.IssuedAt = identity.IssuedAt.UTC().Format(time.RFC3339)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
