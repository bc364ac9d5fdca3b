package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             services.ErrStepEntryNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "step entry not found",
		},
		{
			name:            "validation error",
			err:             services.ErrInvalidDateRange,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "invalid date range",
		},
		{
			name:            "unauthorized error",
			err:             services.ErrUnauthorized,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "Authentication required",
		},
		{
			name:            "invalid credentials",
			err:             services.NewDomainError(services.ErrorTypeUnauthorized, services.ErrInvalidCredentials.Message, errors.New("status 400")),
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "Invalid credentials",
		},
		{
			name:            "forbidden error hides reason",
			err:             services.NewDomainError(services.ErrorTypeForbidden, "subject is not a uuid", nil),
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "Access forbidden",
		},
		{
			name:            "conflict error",
			err:             services.ErrDuplicateStepEntry,
			expectedStatus:  http.StatusConflict,
			expectedError:   "conflict",
			expectedMessage: services.ErrDuplicateStepEntry.Message,
		},
		{
			name:            "external error",
			err:             services.WrapExternal(services.ErrAuthProviderUnavailable.Message, errors.New("dial tcp: refused")),
			expectedStatus:  http.StatusBadGateway,
			expectedError:   "bad_gateway",
			expectedMessage: "authentication provider unavailable",
		},
		{
			name:            "internal error",
			err:             services.WrapInternal("database error", errors.New("pq: relation does not exist")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "plain error",
			err:             errors.New("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_DoesNotLeakCauses(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, services.WrapInternal("database error", errors.New("password=hunter2")), zap.NewNop())
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	t.Run("field errors become details", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, utils.NewFieldError("date", "date is required"), zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "date is required", response.Details["date"])
	})

	t.Run("plain error message", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("invalid JSON body"), zap.NewNop())

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "invalid JSON body", response.Message)
		assert.Nil(t, response.Details)
	})
}
