package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/models"
)

var (
	// ErrNotFound is wrapped by repositories when a row does not exist or is
	// hidden from the current scope by row level security.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is wrapped when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// UserRepository handles profile data operations
type UserRepository interface {
	// Upsert creates the profile or refreshes its email
	Upsert(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Update writes display name and daily step goal
	Update(ctx context.Context, user *models.User) error
}

// StepRepository handles step entry data operations
type StepRepository interface {
	Create(ctx context.Context, entry *models.StepEntry) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.StepEntry, error)

	// ListByUser returns entries with from <= date <= to, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.StepEntry, error)

	// DailyTotals sums entries per day with from <= date <= to, newest first
	DailyTotals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.DailyTotal, error)

	Delete(ctx context.Context, id uuid.UUID) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users UserRepository
	Steps StepRepository
}

// Scope runs work against the backend under one identity. Everything fn does
// through repos happens in a single transaction that commits when fn returns
// nil.
type Scope interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

// ClientFactory hands out backend scopes. ForSubject scopes are limited by
// the backend's row level security to what subjectID may see; the Service
// scope bypasses it and is reserved for trusted server work.
type ClientFactory interface {
	ForSubject(subjectID string) Scope
	Service() Scope
}

// HealthChecker reports whether the backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
