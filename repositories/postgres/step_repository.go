package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/repositories"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// StepRepository implements the repositories.StepRepository interface
type StepRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *DB, logger *zap.Logger) *StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

const stepColumns = `id, user_id, entry_date, step_count, distance_meters, source, created_at`

// Create inserts a step entry
func (r *StepRepository) Create(ctx context.Context, entry *models.StepEntry) error {
	query := `
		INSERT INTO step_entries (` + stepColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.EntryDate,
		entry.StepCount,
		entry.DistanceMeters,
		entry.Source,
		entry.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: step entry for %s", repositories.ErrDuplicate, entry.Date())
		}
		return fmt.Errorf("failed to create step entry: %w", err)
	}

	r.logger.Debug("step entry created",
		zap.String("id", entry.ID.String()),
		zap.String("user_id", entry.UserID.String()))
	return nil
}

// GetByID retrieves a step entry by ID
func (r *StepRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StepEntry, error) {
	query := `SELECT ` + stepColumns + ` FROM step_entries WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	entry, err := scanStepEntry(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: step entry %s", repositories.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get step entry: %w", err)
	}
	return entry, nil
}

// ListByUser returns entries with from <= date <= to, newest first
func (r *StepRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.StepEntry, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM step_entries
		WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date DESC, created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list step entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.StepEntry
	for rows.Next() {
		entry, err := scanStepEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step entries: %w", err)
	}

	return entries, nil
}

// DailyTotals sums entries per day with from <= date <= to, newest first
func (r *StepRepository) DailyTotals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.DailyTotal, error) {
	query := `
		SELECT entry_date, SUM(step_count)
		FROM step_entries
		WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3
		GROUP BY entry_date
		ORDER BY entry_date DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	var totals []models.DailyTotal
	for rows.Next() {
		var total models.DailyTotal
		if err := rows.Scan(&total.Date, &total.Steps); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		total.Date = models.TruncateDay(total.Date)
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily totals: %w", err)
	}

	return totals, nil
}

// Delete removes a step entry
func (r *StepRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM step_entries WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete step entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: step entry %s", repositories.ErrNotFound, id)
	}

	r.logger.Debug("step entry deleted", zap.String("id", id.String()))
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStepEntry(row rowScanner) (*models.StepEntry, error) {
	entry := &models.StepEntry{}
	var source string
	if err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.EntryDate,
		&entry.StepCount,
		&entry.DistanceMeters,
		&source,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	entry.EntryDate = models.TruncateDay(entry.EntryDate)
	entry.Source = models.StepSource(source)
	return entry, nil
}
