package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walkingapp/walking-api/internal/observability"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/supabase"
	"github.com/walkingapp/walking-api/utils"
	"go.uber.org/zap"
)

const (
	userOne = "11111111-1111-1111-1111-111111111111"
	userTwo = "22222222-2222-2222-2222-222222222222"
)

func TestAuthorize(t *testing.T) {
	u1 := &supabase.Identity{SubjectID: userOne}

	tests := []struct {
		name     string
		identity *supabase.Identity
		policy   Policy
		want     error
	}{
		{"authenticated allows identity", u1, Authenticated, nil},
		{"authenticated denies anonymous", nil, Authenticated, services.ErrUnauthorized},
		{"owner allows self", u1, OwnedBy(userOne), nil},
		{"owner compares uuids case-insensitively", &supabase.Identity{SubjectID: "AAAAAAAA-1111-1111-1111-111111111111"}, OwnedBy("aaaaaaaa-1111-1111-1111-111111111111"), nil},
		{"owner denies other user", u1, OwnedBy(userTwo), services.ErrForbidden},
		{"owner denies anonymous", nil, OwnedBy(userOne), services.ErrUnauthorized},
		{"owner denies empty owner", u1, OwnedBy(""), services.ErrForbidden},
		{"non uuid subjects compare exactly", &supabase.Identity{SubjectID: "svc-a"}, OwnedBy("svc-a"), nil},
		{"non uuid subjects differ", &supabase.Identity{SubjectID: "svc-a"}, OwnedBy("SVC-A"), services.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.identity, tt.policy)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorize_IsPure(t *testing.T) {
	u1 := &supabase.Identity{SubjectID: userOne}
	policy := OwnedBy(userTwo)

	first := Authorize(u1, policy)
	second := Authorize(u1, policy)
	assert.Equal(t, first, second)
	assert.Equal(t, userOne, u1.SubjectID)
}

func TestGate_RequireAuthenticated(t *testing.T) {
	reg := prometheus.NewRegistry()
	gate := NewGate(observability.NewMetrics(reg), zap.NewNop())
	handler := gate.RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous gets generic 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithAuthOutcome(req.Context(), OutcomeVerificationFailed))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "unauthorized", body.Error)
		assert.Equal(t, "Authentication required", body.Message)
	})

	t.Run("identity passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), &supabase.Identity{SubjectID: userOne}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	count, err := testutil.GatherAndCount(reg, "walking_api_authorization_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGate_RequireOwner(t *testing.T) {
	reg := prometheus.NewRegistry()
	gate := NewGate(observability.NewMetrics(reg), zap.NewNop())

	r := chi.NewRouter()
	r.With(gate.RequireOwner("userID")).Get("/users/{userID}/steps", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		identity   *supabase.Identity
		path       string
		wantStatus int
		wantMsg    string
	}{
		{"owner", &supabase.Identity{SubjectID: userOne}, "/users/" + userOne + "/steps", http.StatusOK, ""},
		{"other user", &supabase.Identity{SubjectID: userOne}, "/users/" + userTwo + "/steps", http.StatusForbidden, "Access forbidden"},
		{"anonymous", nil, "/users/" + userOne + "/steps", http.StatusUnauthorized, "Authentication required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMsg != "" {
				var body utils.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, tt.wantMsg, body.Message)
			}
		})
	}
}

func TestGate_AuthorizeRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	gate := NewGate(observability.NewMetrics(reg), zap.NewNop())
	ctx := WithIdentity(context.Background(), &supabase.Identity{SubjectID: userOne})

	assert.NoError(t, gate.AuthorizeRequest(ctx, OwnedBy(userOne)))
	assert.ErrorIs(t, gate.AuthorizeRequest(ctx, OwnedBy(userTwo)), services.ErrForbidden)
	assert.ErrorIs(t, gate.AuthorizeRequest(context.Background(), Authenticated), services.ErrUnauthorized)

	count, err := testutil.GatherAndCount(reg, "walking_api_authorization_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGate_NilMetrics(t *testing.T) {
	gate := NewGate(nil, zap.NewNop())
	assert.NotPanics(t, func() {
		_ = gate.AuthorizeRequest(context.Background(), Authenticated)
	})
}
