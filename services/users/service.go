package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/repositories"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/supabase"
	"go.uber.org/zap"
)

// UpdateInput holds the profile fields a user may change. Nil fields are left
// untouched.
type UpdateInput struct {
	DisplayName   *string
	DailyStepGoal *int
}

// Service manages walker profiles
type Service struct {
	clients repositories.ClientFactory
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a users service
func NewService(clients repositories.ClientFactory, logger *zap.Logger) *Service {
	return &Service{
		clients: clients,
		logger:  logger,
		now:     time.Now,
	}
}

// GetCurrent returns the caller's profile, creating it on first use.
func (s *Service) GetCurrent(ctx context.Context, identity *supabase.Identity) (*models.User, error) {
	id, err := services.CallerID(identity)
	if err != nil {
		return nil, err
	}

	return services.RunInScopeResult(ctx, s.clients.ForSubject(identity.SubjectID), services.ErrUserNotFound, func(ctx context.Context, repos *repositories.Repositories) (*models.User, error) {
		return services.EnsureProfile(ctx, repos, id, identity.Email)
	})
}

// Get returns any profile visible to the caller.
func (s *Service) Get(ctx context.Context, identity *supabase.Identity, userID uuid.UUID) (*models.User, error) {
	if identity == nil {
		return nil, services.ErrUnauthorized
	}

	return services.RunInScopeResult(ctx, s.clients.ForSubject(identity.SubjectID), services.ErrUserNotFound, func(ctx context.Context, repos *repositories.Repositories) (*models.User, error) {
		return repos.Users.GetByID(ctx, userID)
	})
}

// Update changes the caller's own profile. Callers are expected to have
// passed the ownership gate for userID.
func (s *Service) Update(ctx context.Context, identity *supabase.Identity, userID uuid.UUID, in UpdateInput) (*models.User, error) {
	id, err := services.CallerID(identity)
	if err != nil {
		return nil, err
	}
	if id != userID {
		return nil, services.ErrForbidden
	}

	user, err := services.RunInScopeResult(ctx, s.clients.ForSubject(identity.SubjectID), services.ErrUserNotFound, func(ctx context.Context, repos *repositories.Repositories) (*models.User, error) {
		user, err := services.EnsureProfile(ctx, repos, id, identity.Email)
		if err != nil {
			return nil, err
		}
		if in.DisplayName != nil {
			user.DisplayName = *in.DisplayName
		}
		if in.DailyStepGoal != nil {
			user.DailyStepGoal = *in.DailyStepGoal
		}
		user.UpdatedAt = s.now().UTC()
		if err := repos.Users.Update(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.String("user_id", id.String()))
	return user, nil
}
