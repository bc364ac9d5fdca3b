package middleware

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/walkingapp/walking-api/supabase"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// IdentityKey is the context key for the verified caller
	IdentityKey contextKey = "identity"

	// AuthOutcomeKey is the context key for the bridge outcome
	AuthOutcomeKey contextKey = "auth_outcome"
)

// AuthOutcome is where a request ended up in the authentication bridge.
type AuthOutcome string

const (
	OutcomeNoToken            AuthOutcome = "no_token"
	OutcomeVerified           AuthOutcome = "verified"
	OutcomeVerificationFailed AuthOutcome = "verification_failed"
)

// GetRequestIDFromContext retrieves the request ID from context, falling back
// to the ID assigned by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return chimiddleware.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetIdentityFromContext returns the verified caller, or nil for anonymous
// requests.
func GetIdentityFromContext(ctx context.Context) *supabase.Identity {
	if identity, ok := ctx.Value(IdentityKey).(*supabase.Identity); ok {
		return identity
	}
	return nil
}

// WithIdentity attaches a verified caller to the context
func WithIdentity(ctx context.Context, identity *supabase.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetAuthOutcomeFromContext returns the bridge outcome. Requests that never
// passed through the bridge report no_token.
func GetAuthOutcomeFromContext(ctx context.Context) AuthOutcome {
	if outcome, ok := ctx.Value(AuthOutcomeKey).(AuthOutcome); ok {
		return outcome
	}
	return OutcomeNoToken
}

// WithAuthOutcome records the bridge outcome in the context
func WithAuthOutcome(ctx context.Context, outcome AuthOutcome) context.Context {
	return context.WithValue(ctx, AuthOutcomeKey, outcome)
}
