package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/walkingapp/walking-api/internal/observability"
	"github.com/walkingapp/walking-api/supabase"
	"go.uber.org/zap"
)

// TokenVerifier defines the interface for verifying bearer tokens
type TokenVerifier interface {
	// VerifyToken verifies a raw token and returns the caller identity
	VerifyToken(ctx context.Context, token string) (*supabase.Identity, error)
}

// AuthMiddleware bridges bearer tokens to request identities. It never
// rejects a request; authorization is decided later by the Gate.
type AuthMiddleware struct {
	verifier TokenVerifier
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, metrics *observability.Metrics, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Authenticate attaches the verified identity to the request context when
// the request carries a valid bearer token. Missing or invalid tokens leave
// the request anonymous.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := extractBearerToken(r)
		if token == "" {
			m.metrics.RecordVerification(observability.VerificationNoToken)
			next.ServeHTTP(w, r.WithContext(WithAuthOutcome(ctx, OutcomeNoToken)))
			return
		}

		identity, err := m.verify(ctx, token)
		if err != nil {
			kind := "unknown"
			if k, ok := supabase.KindOf(err); ok {
				kind = string(k)
			}
			m.logger.Warn("token verification failed",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("kind", kind))
			m.metrics.RecordVerification(observability.VerificationFailed)
			next.ServeHTTP(w, r.WithContext(WithAuthOutcome(ctx, OutcomeVerificationFailed)))
			return
		}

		m.logger.Debug("token verified",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.String("sub", identity.SubjectID))
		m.metrics.RecordVerification(observability.VerificationVerified)

		ctx = WithIdentity(ctx, identity)
		ctx = WithAuthOutcome(ctx, OutcomeVerified)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verify calls the verifier, turning a panic into a plain failure.
func (m *AuthMiddleware) verify(ctx context.Context, token string) (identity *supabase.Identity, err error) {
	defer func() {
		if p := recover(); p != nil {
			identity, err = nil, fmt.Errorf("token verifier panicked: %v", p)
		}
	}()

	identity, err = m.verifier.VerifyToken(ctx, token)
	if err == nil && identity == nil {
		err = fmt.Errorf("token verifier returned no identity")
	}
	return identity, err
}

// extractBearerToken extracts the Bearer token from the Authorization
// header. The scheme is case-insensitive and surrounding whitespace is
// ignored; any other scheme yields no token.
func extractBearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
