// Package auth exchanges Supabase credentials for sessions on behalf of
// mobile clients. Every access token handed out has passed the same
// verification the API applies to bearer tokens.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/walkingapp/walking-api/middleware"
	"github.com/walkingapp/walking-api/services"
	"github.com/walkingapp/walking-api/supabase"
	"github.com/walkingapp/walking-api/utils"
	"go.uber.org/zap"
)

const authFailedMessage = "Authentication failed"

// SessionClient obtains sessions from the Supabase auth server.
type SessionClient interface {
	PasswordGrant(ctx context.Context, email, password string) (*services.TokenResponse, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*services.TokenResponse, error)
}

// LoginRequest is the body of POST /api/v1/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=256"`
}

// RefreshRequest is the body of POST /api/v1/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionUser identifies who a session belongs to.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// SessionResponse is returned by login and refresh.
type SessionResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	ExpiresAt    string      `json:"expires_at"`
	User         SessionUser `json:"user"`
}

// Handler serves the session endpoints.
type Handler struct {
	client   SessionClient
	verifier middleware.TokenVerifier
	logger   *zap.Logger
}

// NewHandler creates a new auth handler. client may be nil when the auth
// server is not configured; the endpoints then answer 500.
func NewHandler(client SessionClient, verifier middleware.TokenVerifier, logger *zap.Logger) *Handler {
	return &Handler{
		client:   client,
		verifier: verifier,
		logger:   logger,
	}
}

// HandleLogin signs a user in with email and password.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		_ = utils.WriteValidationError(w, err)
		return
	}

	h.issue(w, r, "password", func(ctx context.Context) (*services.TokenResponse, error) {
		return h.client.PasswordGrant(ctx, req.Email, req.Password)
	})
}

// HandleRefresh exchanges a refresh token for a new session.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		_ = utils.WriteValidationError(w, err)
		return
	}

	h.issue(w, r, "refresh_token", func(ctx context.Context) (*services.TokenResponse, error) {
		return h.client.RefreshGrant(ctx, req.RefreshToken)
	})
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, grant string, exchange func(ctx context.Context) (*services.TokenResponse, error)) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if h.client == nil || h.verifier == nil {
		h.logger.Error("auth server not configured", zap.String("request_id", requestID))
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	tokens, err := exchange(ctx)
	if err != nil {
		if services.IsInternalError(err) {
			h.logger.Error("session exchange misconfigured",
				zap.String("request_id", requestID),
				zap.String("grant", grant),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "Authentication not configured")
			return
		}
		h.logger.Warn("session exchange failed",
			zap.String("request_id", requestID),
			zap.String("grant", grant),
			zap.String("error_type", string(services.GetErrorType(err))))
		_ = utils.WriteUnauthorized(w, authFailedMessage)
		return
	}

	identity, err := h.verifier.VerifyToken(ctx, tokens.AccessToken)
	if err != nil {
		kind := "unknown"
		if k, ok := supabase.KindOf(err); ok {
			kind = string(k)
		}
		h.logger.Warn("issued token failed verification",
			zap.String("request_id", requestID),
			zap.String("grant", grant),
			zap.String("kind", kind))
		_ = utils.WriteUnauthorized(w, authFailedMessage)
		return
	}

	h.logger.Info("session issued",
		zap.String("request_id", requestID),
		zap.String("grant", grant),
		zap.String("sub", identity.SubjectID))

	_ = utils.WriteOK(w, SessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		ExpiresAt:    identity.ExpiresAt.UTC().Format(time.RFC3339),
		User: SessionUser{
			ID:    identity.SubjectID,
			Email: identity.Email,
		},
	})
}
