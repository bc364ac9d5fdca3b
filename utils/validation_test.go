package utils

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepPayload struct {
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	StepCount *int    `json:"step_count" validate:"required,gte=0,lte=200000"`
	Source    string  `json:"source,omitempty" validate:"omitempty,oneof=manual healthkit google_fit"`
	Email     string  `json:"email,omitempty" validate:"omitempty,email"`
	Note      string  `json:"-" validate:"max=5"`
	Distance  float64 `validate:"gte=0"`
}

func intPtr(v int) *int { return &v }

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		payload   stepPayload
		wantField string
		wantMsg   string
	}{
		{
			name:    "valid",
			payload: stepPayload{Date: "2026-03-14", StepCount: intPtr(0), Source: "healthkit"},
		},
		{
			name:      "missing step count",
			payload:   stepPayload{Date: "2026-03-14"},
			wantField: "step_count",
			wantMsg:   "step_count is required",
		},
		{
			name:      "bad date format",
			payload:   stepPayload{Date: "14/03/2026", StepCount: intPtr(10)},
			wantField: "date",
			wantMsg:   "date must be a date formatted as 2006-01-02",
		},
		{
			name:      "step count above limit",
			payload:   stepPayload{Date: "2026-03-14", StepCount: intPtr(200001)},
			wantField: "step_count",
			wantMsg:   "step_count must be less than or equal to 200000",
		},
		{
			name:      "unknown source",
			payload:   stepPayload{Date: "2026-03-14", StepCount: intPtr(1), Source: "fitbit"},
			wantField: "source",
			wantMsg:   "source must be one of: manual healthkit google_fit",
		},
		{
			name:      "invalid email",
			payload:   stepPayload{Date: "2026-03-14", StepCount: intPtr(1), Email: "walker"},
			wantField: "email",
			wantMsg:   "email must be a valid email",
		},
		{
			name:      "json ignored field keeps go name",
			payload:   stepPayload{Date: "2026-03-14", StepCount: intPtr(1), Note: "too long"},
			wantField: "Note",
			wantMsg:   "Note must be at most 5",
		},
		{
			name:      "untagged field keeps go name",
			payload:   stepPayload{Date: "2026-03-14", StepCount: intPtr(1), Distance: -1},
			wantField: "Distance",
			wantMsg:   "Distance must be greater than or equal to 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.payload)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, "Validation failed", err.Error())
			assert.Equal(t, tt.wantMsg, GetValidationFields(err)[tt.wantField])
		})
	}
}

func TestValidateStruct_NotAStruct(t *testing.T) {
	err := ValidateStruct("not a struct")
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestNewFieldError(t *testing.T) {
	err := NewFieldError("from", "from must be a date")
	assert.True(t, IsValidationError(err))
	assert.Equal(t, map[string]string{"from": "from must be a date"}, GetValidationFields(err))
}

func TestGetValidationFields(t *testing.T) {
	assert.Nil(t, GetValidationFields(errors.New("plain")))
	assert.False(t, IsValidationError(nil))
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()

	got, err := ParseUUID(id.String(), "userID")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUID("me", "userID")
	assert.EqualError(t, err, "userID must be a valid UUID")
}
