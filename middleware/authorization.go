package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/internal/observability"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/supabase"
	"github.com/walkingapp/walking-api/utils"
	"go.uber.org/zap"
)

// Policy decides whether an identity may proceed. Evaluate returns nil to
// allow, services.ErrUnauthorized when there is no identity and
// services.ErrForbidden when the identity is not allowed.
type Policy interface {
	Name() string
	Evaluate(identity *supabase.Identity) error
}

type authenticatedPolicy struct{}

// Authenticated allows any verified caller.
var Authenticated Policy = authenticatedPolicy{}

func (authenticatedPolicy) Name() string { return "authenticated" }

func (authenticatedPolicy) Evaluate(identity *supabase.Identity) error {
	if identity == nil {
		return services.ErrUnauthorized
	}
	return nil
}

type ownedByPolicy struct {
	ownerID string
}

// OwnedBy allows only the caller whose subject is ownerID.
func OwnedBy(ownerID string) Policy {
	return ownedByPolicy{ownerID: ownerID}
}

func (ownedByPolicy) Name() string { return "owned_by" }

func (p ownedByPolicy) Evaluate(identity *supabase.Identity) error {
	if identity == nil {
		return services.ErrUnauthorized
	}
	if !sameSubject(identity.SubjectID, p.ownerID) {
		return services.ErrForbidden
	}
	return nil
}

// sameSubject compares UUID subjects by value so that case differences in
// the textual form do not matter. Other subjects must match exactly.
func sameSubject(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA == nil && errB == nil {
		return ua == ub
	}
	return a == b
}

// Authorize evaluates policy against identity. It has no side effects.
func Authorize(identity *supabase.Identity, policy Policy) error {
	return policy.Evaluate(identity)
}

// Gate applies policies to requests and records each decision.
type Gate struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewGate creates a new Gate
func NewGate(metrics *observability.Metrics, logger *zap.Logger) *Gate {
	return &Gate{
		metrics: metrics,
		logger:  logger,
	}
}

// AuthorizeRequest evaluates policy against the identity in ctx. Handlers
// that learn the owner only after loading a row call this directly.
func (g *Gate) AuthorizeRequest(ctx context.Context, policy Policy) error {
	err := Authorize(GetIdentityFromContext(ctx), policy)

	decision := observability.DecisionAllow
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUnauthorized):
		decision = observability.DecisionUnauthorized
	default:
		decision = observability.DecisionForbidden
	}
	g.metrics.RecordAuthorization(policy.Name(), decision)

	if err != nil {
		g.logger.Info("authorization denied",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.String("policy", policy.Name()),
			zap.String("decision", decision),
			zap.String("auth_outcome", string(GetAuthOutcomeFromContext(ctx))))
	}
	return err
}

// RequireAuthenticated rejects anonymous requests with 401.
func (g *Gate) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.AuthorizeRequest(r.Context(), Authenticated); err != nil {
			writeDenied(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwner rejects requests whose caller is not the subject named by the
// chi URL parameter urlParam.
func (g *Gate) RequireOwner(urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := chi.URLParam(r, urlParam)
			if err := g.AuthorizeRequest(r.Context(), OwnedBy(ownerID)); err != nil {
				writeDenied(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeDenied writes the generic 401 or 403 body for a gate decision.
func writeDenied(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrUnauthorized) {
		_ = utils.WriteUnauthorized(w, services.ErrUnauthorized.Message)
		return
	}
	_ = utils.WriteForbidden(w, services.ErrForbidden.Message)
}
