package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/middleware"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/services/steps"
	"github.com/walkingapp/walking-api/supabase"
	"github.com/walkingapp/walking-api/utils"
	"go.uber.org/zap"
)

// StepService defines the step operations used by StepHandler
type StepService interface {
	Record(ctx context.Context, identity *supabase.Identity, in steps.RecordInput) (*models.StepEntry, error)
	Get(ctx context.Context, identity *supabase.Identity, id uuid.UUID) (*models.StepEntry, error)
	Delete(ctx context.Context, identity *supabase.Identity, id uuid.UUID) error
	List(ctx context.Context, identity *supabase.Identity, userID uuid.UUID, from, to time.Time) ([]*models.StepEntry, error)
	Stats(ctx context.Context, identity *supabase.Identity, userID uuid.UUID) (*steps.Stats, error)
	DefaultRange() (from, to time.Time)
}

// RecordStepsRequest represents a request to record a day's steps
type RecordStepsRequest struct {
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
	StepCount      *int    `json:"step_count" validate:"required,gte=0,lte=200000"`
	DistanceMeters float64 `json:"distance_meters,omitempty" validate:"gte=0,lte=1000000"`
	Source         string  `json:"source,omitempty" validate:"omitempty,oneof=manual healthkit google_fit"`
}

// StepEntryResponse represents a step entry in API responses
type StepEntryResponse struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Date           string    `json:"date"`
	StepCount      int       `json:"step_count"`
	DistanceMeters float64   `json:"distance_meters"`
	Source         string    `json:"source"`
	CreatedAt      string    `json:"created_at"`
}

// StepHistoryResponse is the response body for a step history query
type StepHistoryResponse struct {
	From    string              `json:"from"`
	To      string              `json:"to"`
	Entries []StepEntryResponse `json:"entries"`
}

// StepHandler handles step entry HTTP requests
type StepHandler struct {
	steps  StepService
	gate   *middleware.Gate
	logger *zap.Logger
}

// NewStepHandler creates a new StepHandler
func NewStepHandler(steps StepService, gate *middleware.Gate, logger *zap.Logger) *StepHandler {
	return &StepHandler{
		steps:  steps,
		gate:   gate,
		logger: logger,
	}
}

// HandleRecordSteps handles POST /api/v1/steps
func (h *StepHandler) HandleRecordSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecordStepsRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entry, err := h.steps.Record(ctx, middleware.GetIdentityFromContext(ctx), steps.RecordInput{
		Date:           date,
		StepCount:      *req.StepCount,
		DistanceMeters: req.DistanceMeters,
		Source:         models.StepSource(req.Source),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, stepEntryToResponse(entry))
}

// HandleGetStepEntry handles GET /api/v1/steps/{id}
func (h *StepHandler) HandleGetStepEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.loadOwnedEntry(w, r)
	if !ok {
		return
	}
	_ = utils.WriteOK(w, stepEntryToResponse(entry))
}

// HandleDeleteStepEntry handles DELETE /api/v1/steps/{id}
func (h *StepHandler) HandleDeleteStepEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entry, ok := h.loadOwnedEntry(w, r)
	if !ok {
		return
	}

	if err := h.steps.Delete(ctx, middleware.GetIdentityFromContext(ctx), entry.ID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleListSteps handles GET /api/v1/users/{userID}/steps
func (h *StepHandler) HandleListSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := utils.ParseUUID(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	from, to, err := h.parseRange(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entries, err := h.steps.List(ctx, middleware.GetIdentityFromContext(ctx), userID, from, to)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]StepEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = stepEntryToResponse(e)
	}

	_ = utils.WriteOK(w, StepHistoryResponse{
		From:    from.Format(models.DateLayout),
		To:      to.Format(models.DateLayout),
		Entries: responses,
	})
}

// HandleGetStats handles GET /api/v1/users/{userID}/steps/stats
func (h *StepHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := utils.ParseUUID(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	stats, err := h.steps.Stats(ctx, middleware.GetIdentityFromContext(ctx), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stats)
}

// loadOwnedEntry loads the entry named by the id URL parameter and checks
// that the caller owns it. On failure the response has been written.
func (h *StepHandler) loadOwnedEntry(w http.ResponseWriter, r *http.Request) (*models.StepEntry, bool) {
	ctx := r.Context()

	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return nil, false
	}

	entry, err := h.steps.Get(ctx, middleware.GetIdentityFromContext(ctx), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return nil, false
	}

	if err := h.gate.AuthorizeRequest(ctx, middleware.OwnedBy(entry.UserID.String())); err != nil {
		HandleServiceError(w, err, h.logger)
		return nil, false
	}
	return entry, true
}

// parseRange reads the optional from and to query parameters. A missing
// bound defaults relative to the other, or to the service's default window.
func (h *StepHandler) parseRange(r *http.Request) (from, to time.Time, err error) {
	defaultFrom, defaultTo := h.steps.DefaultRange()
	window := defaultTo.Sub(defaultFrom)

	q := r.URL.Query()
	fromStr, toStr := q.Get("from"), q.Get("to")

	if toStr != "" {
		if to, err = time.Parse(models.DateLayout, toStr); err != nil {
			return from, to, utils.NewFieldError("to", "to must be a date formatted as "+models.DateLayout)
		}
	}
	if fromStr != "" {
		if from, err = time.Parse(models.DateLayout, fromStr); err != nil {
			return from, to, utils.NewFieldError("from", "from must be a date formatted as "+models.DateLayout)
		}
	}

	switch {
	case fromStr == "" && toStr == "":
		from, to = defaultFrom, defaultTo
	case fromStr == "":
		from = to.Add(-window)
	case toStr == "":
		to = defaultTo
	}
	return from, to, nil
}

func stepEntryToResponse(e *models.StepEntry) StepEntryResponse {
	return StepEntryResponse{
		ID:             e.ID,
		UserID:         e.UserID,
		Date:           e.Date(),
		StepCount:      e.StepCount,
		DistanceMeters: e.DistanceMeters,
		Source:         string(e.Source),
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
