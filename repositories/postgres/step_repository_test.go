package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/repositories"
	"go.uber.org/zap"
)

func newMockStepRepository(t *testing.T) (*StepRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewStepRepository(WrapDB(sqlDB, zap.NewNop()), zap.NewNop()), mock
}

var stepRowColumns = []string{"id", "user_id", "entry_date", "step_count", "distance_meters", "source", "created_at"}

func TestStepRepository_Create(t *testing.T) {
	entry := models.NewStepEntry(uuid.New(), time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), 9000, 6500, models.SourceManual)

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockStepRepository(t)
		mock.ExpectExec("INSERT INTO step_entries").
			WithArgs(entry.ID, entry.UserID, entry.EntryDate, 9000, 6500.0, "manual", entry.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(context.Background(), entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate", func(t *testing.T) {
		repo, mock := newMockStepRepository(t)
		mock.ExpectExec("INSERT INTO step_entries").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.Create(context.Background(), entry)
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		repo, mock := newMockStepRepository(t)
		mock.ExpectExec("INSERT INTO step_entries").WillReturnError(errors.New("connection reset"))

		err := repo.Create(context.Background(), entry)
		require.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrDuplicate)
		assert.Contains(t, err.Error(), "failed to create step entry")
	})
}

func TestStepRepository_GetByID(t *testing.T) {
	id := uuid.New()
	userID := uuid.New()
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockStepRepository(t)
		mock.ExpectQuery("SELECT id, user_id, entry_date").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(stepRowColumns).
				AddRow(id.String(), userID.String(), time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), 1200, 900.5, "healthkit", now))

		entry, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, entry.ID)
		assert.Equal(t, userID, entry.UserID)
		assert.Equal(t, "2026-03-14", entry.Date())
		assert.Equal(t, models.SourceHealthKit, entry.Source)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockStepRepository(t)
		mock.ExpectQuery("SELECT id, user_id, entry_date").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(stepRowColumns))

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestStepRepository_ListByUser(t *testing.T) {
	repo, mock := newMockStepRepository(t)
	userID := uuid.New()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM step_entries").
		WithArgs(userID, from, to).
		WillReturnRows(sqlmock.NewRows(stepRowColumns).
			AddRow(uuid.New().String(), userID.String(), to, 5000, 0.0, "manual", now).
			AddRow(uuid.New().String(), userID.String(), from, 7000, 0.0, "google_fit", now))

	entries, err := repo.ListByUser(context.Background(), userID, from, to)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-03-14", entries[0].Date())
	assert.Equal(t, models.SourceGoogleFit, entries[1].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStepRepository_DailyTotals(t *testing.T) {
	repo, mock := newMockStepRepository(t)
	userID := uuid.New()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SUM\\(step_count\\)").
		WithArgs(userID, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"entry_date", "sum"}).
			AddRow(to, 12000).
			AddRow(to.AddDate(0, 0, -1), 3000))

	totals, err := repo.DailyTotals(context.Background(), userID, from, to)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, to, totals[0].Date)
	assert.Equal(t, 12000, totals[0].Steps)
	assert.Equal(t, 3000, totals[1].Steps)
}

func TestStepRepository_Delete(t *testing.T) {
	id := uuid.New()

	t.Run("deleted", func(t *testing.T) {
		repo, mock := newMockStepRepository(t)
		mock.ExpectExec("DELETE FROM step_entries").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Delete(context.Background(), id))
	})

	t.Run("nothing deleted", func(t *testing.T) {
		repo, mock := newMockStepRepository(t)
		mock.ExpectExec("DELETE FROM step_entries").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Delete(context.Background(), id), repositories.ErrNotFound)
	})
}
