package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walkingapp/walking-api/app"
	"github.com/walkingapp/walking-api/config"
	"github.com/walkingapp/walking-api/supabase"
	"go.uber.org/zap/zaptest"
)

const (
	testSecret   = "routes-test-secret-0123456789abcdef"
	testIssuer   = "https://project.supabase.co/auth/v1"
	testAudience = "authenticated"
)

type testServer struct {
	handler http.Handler
	signer  *supabase.Signer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"https://app.walking.example"},
		},
		Database: config.DatabaseConfig{ConnectionString: "memory://"},
		Supabase: config.SupabaseConfig{
			JWTSecret:   testSecret,
			JWTIssuer:   testIssuer,
			JWTAudience: testAudience,
		},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
	}
	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	trust, err := supabase.NewTrustConfig(testSecret, testIssuer, testAudience)
	require.NoError(t, err)

	return &testServer{handler: SetupRoutes(deps), signer: supabase.NewSigner(trust)}
}

func (s *testServer) token(t *testing.T, opts supabase.TokenOptions) string {
	t.Helper()
	token, err := s.signer.Sign(opts)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func TestSetupRoutes_Scenarios(t *testing.T) {
	srv := newTestServer(t)
	u1 := uuid.NewString()
	u2 := uuid.NewString()
	u1Token := srv.token(t, supabase.TokenOptions{Subject: u1, Email: "u1@example.com"})
	u2Token := srv.token(t, supabase.TokenOptions{Subject: u2, Email: "u2@example.com"})

	w := srv.do(t, http.MethodPost, "/api/v1/steps", u1Token, map[string]interface{}{
		"date":       today(),
		"step_count": 8500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPost, "/api/v1/steps", u2Token, map[string]interface{}{
		"date":       today(),
		"step_count": 3000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("valid token reads own data", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/users/"+u1+"/steps", u1Token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var envelope struct {
			Data struct {
				Entries []struct {
					UserID    string `json:"user_id"`
					StepCount int    `json:"step_count"`
				} `json:"entries"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
		require.Len(t, envelope.Data.Entries, 1)
		assert.Equal(t, u1, envelope.Data.Entries[0].UserID)
		assert.Equal(t, 8500, envelope.Data.Entries[0].StepCount)
	})

	t.Run("current user", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/users/me", u1Token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var envelope struct {
			Data struct {
				Sub   string `json:"sub"`
				Email string `json:"email"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
		assert.Equal(t, u1, envelope.Data.Sub)
		assert.Equal(t, "u1@example.com", envelope.Data.Email)
	})

	t.Run("expired token is treated as anonymous", func(t *testing.T) {
		expired := srv.token(t, supabase.TokenOptions{
			Subject:  u1,
			IssuedAt: time.Now().Add(-70 * time.Minute),
			TTL:      time.Hour,
		})

		w := srv.do(t, http.MethodGet, "/api/v1/users/"+u1+"/steps", expired, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Authentication required", body["message"])
		assert.NotContains(t, strings.ToLower(body["message"].(string)), "expired")
	})

	t.Run("missing header", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authentication required", decodeBody(t, w)["message"])
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other, err := supabase.NewTrustConfig("another-secret-0123456789abcdefghij", testIssuer, testAudience)
		require.NoError(t, err)
		forged, err := supabase.NewSigner(other).Sign(supabase.TokenOptions{Subject: u1})
		require.NoError(t, err)

		w := srv.do(t, http.MethodGet, "/api/v1/users/me", forged, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("other user's history is forbidden", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/users/"+u2+"/steps", u1Token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Access forbidden", decodeBody(t, w)["message"])

		w = srv.do(t, http.MethodGet, "/api/v1/users/"+u2+"/steps/stats", u1Token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = srv.do(t, http.MethodPut, "/api/v1/users/"+u2, u1Token, map[string]interface{}{"daily_step_goal": 5000})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("stats for own history", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/users/"+u1+"/steps/stats", u1Token, nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

func TestSetupRoutes_StepEntryLifecycle(t *testing.T) {
	srv := newTestServer(t)
	owner := uuid.NewString()
	ownerToken := srv.token(t, supabase.TokenOptions{Subject: owner})
	otherToken := srv.token(t, supabase.TokenOptions{Subject: uuid.NewString()})

	w := srv.do(t, http.MethodPost, "/api/v1/steps", ownerToken, map[string]interface{}{
		"date":       today(),
		"step_count": 1200,
		"source":     "healthkit",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	entryPath := "/api/v1/steps/" + created.Data.ID

	w = srv.do(t, http.MethodGet, entryPath, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodDelete, entryPath, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, entryPath, ownerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodDelete, entryPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(t, http.MethodDelete, entryPath, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodGet, entryPath, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_Operations(t *testing.T) {
	srv := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("readiness", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/readyz", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("status is public", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/status", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), app.BackendMemory)
	})

	t.Run("status tolerates a bad token", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/status", "not-a-jwt", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("session endpoints without auth server", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "walker@example.com",
			"password": "secret",
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("metrics expose verification outcomes", func(t *testing.T) {
		srv.do(t, http.MethodGet, "/api/v1/status", "not-a-jwt", nil)

		w := srv.do(t, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		raw, err := io.ReadAll(w.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `walking_api_token_verifications_total{result="verification_failed"}`)
		assert.Contains(t, string(raw), `walking_api_token_verifications_total{result="no_token"}`)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/healthz", "", nil)
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("unknown route", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v2/nothing", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/me", nil)
		req.Header.Set("Origin", "https://app.walking.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		w := httptest.NewRecorder()
		srv.handler.ServeHTTP(w, req)

		assert.Equal(t, "https://app.walking.example", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
