package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/walkingapp/walking-api/config"
)

// TokenResponse is the GoTrue token endpoint response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	TokenType    string `json:"token_type"`
}

// SupabaseAuthClient exchanges credentials for sessions with the Supabase
// auth server.
type SupabaseAuthClient struct {
	projectURL string
	authURL    string
	anonKey    string
	httpClient *http.Client
}

// NewSupabaseAuthClient creates a new auth client
func NewSupabaseAuthClient(cfg config.SupabaseConfig) *SupabaseAuthClient {
	return &SupabaseAuthClient{
		projectURL: cfg.URL,
		authURL:    cfg.AuthURL(),
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

// PasswordGrant signs a user in with email and password.
func (c *SupabaseAuthClient) PasswordGrant(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.token(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RefreshGrant exchanges a refresh token for a new session.
func (c *SupabaseAuthClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

func (c *SupabaseAuthClient) token(ctx context.Context, grantType string, payload map[string]string) (*TokenResponse, error) {
	if c.projectURL == "" || c.anonKey == "" {
		return nil, WrapInternal("auth server not configured", nil)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapInternal("encode token request", err)
	}

	tokenURL := c.authURL + "/token?" + url.Values{"grant_type": {grantType}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, WrapInternal("create token request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, WrapExternal(ErrAuthProviderUnavailable.Message, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, WrapExternal("read token response", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized:
		return nil, NewDomainError(ErrorTypeUnauthorized, ErrInvalidCredentials.Message,
			fmt.Errorf("%s grant rejected: status %d", grantType, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, WrapExternal(ErrAuthProviderUnavailable.Message,
			fmt.Errorf("%s grant failed: status %d", grantType, resp.StatusCode))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return nil, WrapExternal("parse token response", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, WrapExternal("no access_token in response", nil)
	}

	return &tokenResp, nil
}
