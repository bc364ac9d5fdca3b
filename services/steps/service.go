package steps

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/repositories"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/supabase"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryDays is the window listed when no range is given.
	DefaultHistoryDays = 30
	// MaxHistoryDays bounds a single history query.
	MaxHistoryDays = 366
	// streakLookbackDays bounds how far back streaks are computed.
	streakLookbackDays = 365
)

// RecordInput is a validated step count submission.
type RecordInput struct {
	Date           time.Time
	StepCount      int
	DistanceMeters float64
	Source         models.StepSource
}

// Stats summarises a user's progress.
type Stats struct {
	UserID        uuid.UUID `json:"user_id"`
	Today         string    `json:"today"`
	TodaySteps    int       `json:"today_steps"`
	DailyGoal     int       `json:"daily_goal"`
	GoalReached   bool      `json:"goal_reached"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
}

// Service records and reports step counts. All data access runs in the
// caller's backend scope.
type Service struct {
	clients repositories.ClientFactory
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a steps service
func NewService(clients repositories.ClientFactory, logger *zap.Logger) *Service {
	return &Service{
		clients: clients,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return models.TruncateDay(s.now().UTC())
}

// Record stores a step entry for the caller.
func (s *Service) Record(ctx context.Context, identity *supabase.Identity, in RecordInput) (*models.StepEntry, error) {
	userID, err := services.CallerID(identity)
	if err != nil {
		return nil, err
	}

	date := models.TruncateDay(in.Date)
	// One day of slack for clients ahead of UTC.
	if date.After(s.today().AddDate(0, 0, 1)) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrFutureDate.Message, nil).
			WithDetail("date", date.Format(models.DateLayout))
	}

	entry := models.NewStepEntry(userID, date, in.StepCount, in.DistanceMeters, in.Source)

	err = services.RunInScope(ctx, s.clients.ForSubject(identity.SubjectID), services.ErrUserNotFound, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := services.EnsureProfile(ctx, repos, userID, identity.Email); err != nil {
			return err
		}
		return repos.Steps.Create(ctx, entry)
	})
	if err != nil {
		if services.IsConflictError(err) {
			return nil, services.NewDomainError(services.ErrorTypeConflict, services.ErrDuplicateStepEntry.Message, err).
				WithDetail("date", entry.Date()).
				WithDetail("source", string(entry.Source))
		}
		return nil, err
	}

	s.logger.Info("step entry recorded",
		zap.String("entry_id", entry.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("step_count", entry.StepCount))
	return entry, nil
}

// Get loads one entry visible to the caller. Ownership is checked by the
// caller of Get against the returned entry's UserID.
func (s *Service) Get(ctx context.Context, identity *supabase.Identity, id uuid.UUID) (*models.StepEntry, error) {
	if identity == nil {
		return nil, services.ErrUnauthorized
	}
	return services.RunInScopeResult(ctx, s.clients.ForSubject(identity.SubjectID), services.ErrStepEntryNotFound, func(ctx context.Context, repos *repositories.Repositories) (*models.StepEntry, error) {
		return repos.Steps.GetByID(ctx, id)
	})
}

// Delete removes one entry visible to the caller.
func (s *Service) Delete(ctx context.Context, identity *supabase.Identity, id uuid.UUID) error {
	if identity == nil {
		return services.ErrUnauthorized
	}
	err := services.RunInScope(ctx, s.clients.ForSubject(identity.SubjectID), services.ErrStepEntryNotFound, func(ctx context.Context, repos *repositories.Repositories) error {
		return repos.Steps.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("step entry deleted",
		zap.String("entry_id", id.String()),
		zap.String("subject", identity.SubjectID))
	return nil
}

// DefaultRange returns the history window used when the client gives none.
func (s *Service) DefaultRange() (from, to time.Time) {
	to = s.today()
	return to.AddDate(0, 0, -(DefaultHistoryDays - 1)), to
}

// List returns userID's entries between from and to inclusive, newest first.
func (s *Service) List(ctx context.Context, identity *supabase.Identity, userID uuid.UUID, from, to time.Time) ([]*models.StepEntry, error) {
	if identity == nil {
		return nil, services.ErrUnauthorized
	}

	from, to = models.TruncateDay(from), models.TruncateDay(to)
	if from.After(to) {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "from must not be after to", nil)
	}
	if to.Sub(from) > MaxHistoryDays*24*time.Hour {
		return nil, services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidDateRange.Message, nil).
			WithDetail("max_days", MaxHistoryDays)
	}

	entries, err := services.RunInScopeResult(ctx, s.clients.ForSubject(identity.SubjectID), nil, func(ctx context.Context, repos *repositories.Repositories) ([]*models.StepEntry, error) {
		return repos.Steps.ListByUser(ctx, userID, from, to)
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.StepEntry{}
	}
	return entries, nil
}

// Stats returns today's progress and streaks for userID.
func (s *Service) Stats(ctx context.Context, identity *supabase.Identity, userID uuid.UUID) (*Stats, error) {
	if identity == nil {
		return nil, services.ErrUnauthorized
	}

	today := s.today()
	stats := &Stats{
		UserID:    userID,
		Today:     today.Format(models.DateLayout),
		DailyGoal: models.DefaultDailyStepGoal,
	}

	var totals []models.DailyTotal
	err := services.RunInScope(ctx, s.clients.ForSubject(identity.SubjectID), nil, func(ctx context.Context, repos *repositories.Repositories) error {
		user, err := repos.Users.GetByID(ctx, userID)
		switch {
		case err == nil:
			stats.DailyGoal = user.DailyStepGoal
		case errors.Is(err, repositories.ErrNotFound):
			// No profile yet; keep the default goal.
		default:
			return err
		}

		totals, err = repos.Steps.DailyTotals(ctx, userID, today.AddDate(0, 0, -streakLookbackDays), today)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, total := range totals {
		if total.Date.Equal(today) {
			stats.TodaySteps = total.Steps
		}
	}
	stats.GoalReached = stats.TodaySteps >= stats.DailyGoal
	stats.CurrentStreak, stats.LongestStreak = CalculateStreak(totals, stats.DailyGoal, today)

	return stats, nil
}
