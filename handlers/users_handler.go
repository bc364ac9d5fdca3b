package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/middleware"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/services/users"
	"github.com/walkingapp/walking-api/supabase"
	"github.com/walkingapp/walking-api/utils"
	"go.uber.org/zap"
)

// UserService defines the profile operations used by UserHandler
type UserService interface {
	GetCurrent(ctx context.Context, identity *supabase.Identity) (*models.User, error)
	Get(ctx context.Context, identity *supabase.Identity, userID uuid.UUID) (*models.User, error)
	Update(ctx context.Context, identity *supabase.Identity, userID uuid.UUID, in users.UpdateInput) (*models.User, error)
}

// UpdateUserRequest represents a profile update. Omitted fields are unchanged.
type UpdateUserRequest struct {
	DisplayName   *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=100"`
	DailyStepGoal *int    `json:"daily_step_goal,omitempty" validate:"omitempty,gte=100,lte=100000"`
}

// UserResponse represents a profile in API responses
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	DailyStepGoal int       `json:"daily_step_goal"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

// CurrentUserResponse is the response body for GET /api/v1/users/me
type CurrentUserResponse struct {
	Sub       string        `json:"sub"`
	Email     string        `json:"email,omitempty"`
	Role      string        `json:"role,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Profile   *UserResponse `json:"profile,omitempty"`
}

// UserHandler handles profile HTTP requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleGetCurrentUser handles GET /api/v1/users/me
func (h *UserHandler) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := middleware.GetIdentityFromContext(ctx)
	if identity == nil {
		HandleServiceError(w, services.ErrUnauthorized, h.logger)
		return
	}

	response := CurrentUserResponse{
		Sub:       identity.SubjectID,
		Email:     identity.Email,
		Role:      identity.Role,
		SessionID: identity.SessionID,
	}

	user, err := h.users.GetCurrent(ctx, identity)
	switch {
	case err == nil:
		profile := userToResponse(user)
		response.Profile = &profile
	case services.IsForbiddenError(err):
		// Subjects that are not user ids have no profile.
	default:
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, response)
}

// HandleGetUser handles GET /api/v1/users/{userID}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := utils.ParseUUID(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.users.Get(ctx, middleware.GetIdentityFromContext(ctx), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, userToResponse(user))
}

// HandleUpdateUser handles PUT /api/v1/users/{userID}
func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	userID, err := utils.ParseUUID(chi.URLParam(r, "userID"), "userID")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	var req UpdateUserRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			_ = utils.WriteBadRequest(w, "Validation failed", map[string]interface{}{
				"display_name": "display_name must not be blank",
			})
			return
		}
		req.DisplayName = &name
	}
	if req.DisplayName == nil && req.DailyStepGoal == nil {
		_ = utils.WriteBadRequest(w, "No fields to update", nil)
		return
	}

	user, err := h.users.Update(ctx, middleware.GetIdentityFromContext(ctx), userID, users.UpdateInput{
		DisplayName:   req.DisplayName,
		DailyStepGoal: req.DailyStepGoal,
	})
	if err != nil {
		h.logger.Debug("profile update failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, userToResponse(user))
}

func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		DailyStepGoal: u.DailyStepGoal,
		CreatedAt:     u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
