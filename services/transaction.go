package services

import (
	"context"
	"errors"

	"github.com/walkingapp/walking-api/repositories"
)

// RunInScope executes fn within scope. Repository errors are translated into
// domain errors; notFound is used for repositories.ErrNotFound.
func RunInScope(ctx context.Context, scope repositories.Scope, notFound *DomainError, fn func(ctx context.Context, repos *repositories.Repositories) error) error {
	return MapRepositoryError(scope.Run(ctx, fn), notFound)
}

// RunInScopeResult executes fn within scope and returns its result.
// Uses generics to support any return type.
func RunInScopeResult[T any](ctx context.Context, scope repositories.Scope, notFound *DomainError, fn func(ctx context.Context, repos *repositories.Repositories) (T, error)) (T, error) {
	var result T
	err := scope.Run(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		result, err = fn(ctx, repos)
		return err
	})
	if err != nil {
		var zero T
		return zero, MapRepositoryError(err, notFound)
	}
	return result, nil
}

// MapRepositoryError converts repository sentinels into domain errors.
// Domain errors pass through untouched.
func MapRepositoryError(err error, notFound *DomainError) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, repositories.ErrNotFound):
		if notFound == nil {
			notFound = NewDomainError(ErrorTypeNotFound, "resource not found", nil)
		}
		return NewDomainError(notFound.Type, notFound.Message, err)
	case errors.Is(err, repositories.ErrDuplicate):
		return NewDomainError(ErrorTypeConflict, "resource already exists", err)
	default:
		return WrapInternal("database error", err)
	}
}
