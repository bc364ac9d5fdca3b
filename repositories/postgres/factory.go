package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/walkingapp/walking-api/repositories"
	"go.uber.org/zap"
)

// roleAuthenticated is the database role row level security policies target.
const roleAuthenticated = "authenticated"

// ClientFactory hands out transaction scoped repositories. Subject scopes
// switch to the authenticated role and publish the caller's claims so that
// row level security applies exactly as it would through PostgREST.
type ClientFactory struct {
	db        *DB
	txManager *TransactionManager
	repos     *repositories.Repositories
	logger    *zap.Logger
}

// NewClientFactory creates a factory over db.
func NewClientFactory(db *DB, logger *zap.Logger) *ClientFactory {
	return &ClientFactory{
		db:        db,
		txManager: NewTransactionManager(db, logger),
		repos: &repositories.Repositories{
			Users: NewUserRepository(db, logger),
			Steps: NewStepRepository(db, logger),
		},
		logger: logger,
	}
}

// ForSubject returns a scope limited to what subjectID may see.
func (f *ClientFactory) ForSubject(subjectID string) repositories.Scope {
	return &subjectScope{factory: f, subjectID: subjectID}
}

// Service returns a scope that runs with the connection's own privileges.
func (f *ClientFactory) Service() repositories.Scope {
	return &serviceScope{factory: f}
}

// DB returns the underlying pool.
func (f *ClientFactory) DB() *DB {
	return f.db
}

// HealthCheck pings the database.
func (f *ClientFactory) HealthCheck(ctx context.Context) error {
	return f.db.HealthCheck(ctx)
}

// Close closes the database connection.
func (f *ClientFactory) Close() error {
	return f.db.Close()
}

type subjectScope struct {
	factory   *ClientFactory
	subjectID string
}

func (s *subjectScope) Run(ctx context.Context, fn func(ctx context.Context, repos *repositories.Repositories) error) error {
	if s.subjectID == "" {
		return errors.New("subject scope requires a subject id")
	}

	claims, err := json.Marshal(map[string]string{
		"sub":  s.subjectID,
		"role": roleAuthenticated,
	})
	if err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}

	return s.factory.txManager.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		exec := GetExecutor(ctx, s.factory.db)
		if _, err := exec.ExecContext(ctx, "SET LOCAL ROLE "+roleAuthenticated); err != nil {
			return fmt.Errorf("failed to assume authenticated role: %w", err)
		}
		if _, err := exec.ExecContext(ctx, "SELECT set_config('request.jwt.claims', $1, true)", string(claims)); err != nil {
			return fmt.Errorf("failed to set request claims: %w", err)
		}
		return fn(ctx, s.factory.repos)
	})
}

type serviceScope struct {
	factory *ClientFactory
}

func (s *serviceScope) Run(ctx context.Context, fn func(ctx context.Context, repos *repositories.Repositories) error) error {
	return s.factory.txManager.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		return fn(ctx, s.factory.repos)
	})
}
