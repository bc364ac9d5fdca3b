package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/walkingapp/walking-api/middleware"
	"github.com/walkingapp/walking-api/repositories/memory"
	"github.com/walkingapp/walking-api/services/steps"
	"github.com/walkingapp/walking-api/services/users"
	"github.com/walkingapp/walking-api/supabase"
	"go.uber.org/zap"
)

var handlerNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

// testAPI mounts the handlers the way the router does, minus authentication:
// requests carry their identity through the X-Test-Subject header.
func testAPI(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	gate := middleware.NewGate(nil, logger)

	userHandler := NewUserHandler(users.NewService(store, logger), logger)
	stepHandler := NewStepHandler(steps.NewService(store, logger).WithClock(func() time.Time { return handlerNow }), gate, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sub := r.Header.Get("X-Test-Subject"); sub != "" {
				identity := &supabase.Identity{SubjectID: sub, Email: sub[:8] + "@example.com", Role: "authenticated"}
				r = r.WithContext(middleware.WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/users/me", userHandler.HandleGetCurrentUser)
	r.Get("/users/{userID}", userHandler.HandleGetUser)
	r.With(gate.RequireOwner("userID")).Put("/users/{userID}", userHandler.HandleUpdateUser)
	r.Post("/steps", stepHandler.HandleRecordSteps)
	r.Get("/steps/{id}", stepHandler.HandleGetStepEntry)
	r.Delete("/steps/{id}", stepHandler.HandleDeleteStepEntry)
	r.With(gate.RequireOwner("userID")).Get("/users/{userID}/steps", stepHandler.HandleListSteps)
	r.With(gate.RequireOwner("userID")).Get("/users/{userID}/steps/stats", stepHandler.HandleGetStats)
	return r
}

func call(t *testing.T, h http.Handler, method, path, subject string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if subject != "" {
		req.Header.Set("X-Test-Subject", subject)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func newSubject() string {
	return uuid.New().String()
}
