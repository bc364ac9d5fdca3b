package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/walkingapp/walking-api/auth"
	"github.com/walkingapp/walking-api/config"
	"github.com/walkingapp/walking-api/internal/observability"
	"github.com/walkingapp/walking-api/middleware"
	"github.com/walkingapp/walking-api/repositories"
	"github.com/walkingapp/walking-api/repositories/memory"
	"github.com/walkingapp/walking-api/repositories/postgres"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/services/steps"
	"github.com/walkingapp/walking-api/services/users"
	"github.com/walkingapp/walking-api/supabase"
	"go.uber.org/zap"
)

// Backend names reported by the status endpoint.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Backend
	Clients     repositories.ClientFactory
	Health      repositories.HealthChecker
	BackendName string
	DB          *postgres.DB

	// Auth
	Verifier       *supabase.Verifier
	AuthMiddleware *middleware.AuthMiddleware
	Gate           *middleware.Gate
	AuthHandler    *auth.Handler

	// Services
	Users *users.Service
	Steps *steps.Service
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Trust first: a service that cannot verify tokens must not start.
	if err := deps.initAuth(cfg); err != nil {
		return nil, err
	}

	if err := deps.initBackend(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}

	deps.Users = users.NewService(deps.Clients, logger)
	deps.Steps = steps.NewService(deps.Clients, logger)

	logger.Info("all dependencies initialized successfully",
		zap.String("backend", deps.BackendName),
		zap.String("issuer", deps.Verifier.Trust().Issuer()))
	return deps, nil
}

// initAuth builds the trust configuration, the verifier and everything that
// depends on it.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	trust, err := supabase.NewTrustConfig(cfg.Supabase.JWTSecret, cfg.Supabase.JWTIssuer, cfg.Supabase.JWTAudience)
	if err != nil {
		return fmt.Errorf("failed to build trust configuration: %w", err)
	}

	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)

	d.Verifier = supabase.NewVerifier(trust)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Verifier, d.Metrics, d.Logger)
	d.Gate = middleware.NewGate(d.Metrics, d.Logger)

	var sessions auth.SessionClient
	if cfg.Supabase.URL != "" && cfg.Supabase.AnonKey != "" {
		sessions = services.NewSupabaseAuthClient(cfg.Supabase)
	} else {
		d.Logger.Warn("supabase auth server not configured, session endpoints disabled")
	}
	d.AuthHandler = auth.NewHandler(sessions, d.Verifier, d.Logger)

	return nil
}

// initBackend connects the data store selected by the database config.
func (d *Dependencies) initBackend(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.IsMemory() {
		if cfg.IsProduction() {
			return errors.New("in-memory backend is not allowed in production")
		}
		store := memory.NewStore()
		d.Clients, d.Health, d.BackendName = store, store, BackendMemory
		d.Logger.Warn("using in-memory backend, data is lost on restart")
		return nil
	}

	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	if err := db.HealthCheck(ctx); err != nil {
		_ = db.Close()
		return err
	}

	factory := postgres.NewClientFactory(db, d.Logger)
	d.DB = db
	d.Clients, d.Health, d.BackendName = factory, factory, BackendPostgres
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
