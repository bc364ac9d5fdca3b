package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/walkingapp/walking-api/repositories"
	"github.com/walkingapp/walking-api/utils"
	"go.uber.org/zap"
)

// Version is reported by the status endpoint.
const Version = "0.1.0"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse describes the running service
type StatusResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Backend     string `json:"backend"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	backend     repositories.HealthChecker
	backendName string
	environment string
	logger      *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. backend may be nil when no
// data store is configured, in which case the service is never ready.
func NewHealthHandler(backend repositories.HealthChecker, backendName, environment string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		backend:     backend,
		backendName: backendName,
		environment: environment,
		logger:      logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only; always 200 while the process serves requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status, httpStatus := "healthy", http.StatusOK

	switch {
	case h.backend == nil:
		checks["database"] = "not_initialized"
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	default:
		if err := h.backend.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			status, httpStatus = "unhealthy", http.StatusServiceUnavailable
		} else {
			checks["database"] = "healthy"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, StatusResponse{
		Service:     "walking-api",
		Version:     Version,
		Environment: h.environment,
		Backend:     h.backendName,
	})
}
