package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/repositories"
	"github.com/walkingapp/walking-api/supabase"
)

// CallerID returns the caller's user id. A missing identity is unauthorized;
// a subject that is not a UUID cannot own data here and is forbidden.
func CallerID(identity *supabase.Identity) (uuid.UUID, error) {
	if identity == nil {
		return uuid.Nil, ErrUnauthorized
	}
	id, err := identity.UserID()
	if err != nil {
		return uuid.Nil, NewDomainError(ErrorTypeForbidden, ErrForbidden.Message, err)
	}
	return id, nil
}

// EnsureProfile loads the caller's profile, creating it on first use.
func EnsureProfile(ctx context.Context, repos *repositories.Repositories, id uuid.UUID, email string) (*models.User, error) {
	user, err := repos.Users.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	user = models.NewUser(id, email)
	if err := repos.Users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
