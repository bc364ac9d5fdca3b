package supabase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAuthenticated is the role Supabase assigns to signed-in users.
const RoleAuthenticated = "authenticated"

// TokenOptions describes a token to mint.
type TokenOptions struct {
	Subject   string
	Email     string
	Role      string
	SessionID string
	// IssuedAt defaults to the current time.
	IssuedAt time.Time
	// TTL defaults to one hour.
	TTL time.Duration
}

// Signer mints HS256 tokens that a Verifier with the same TrustConfig accepts.
// It backs the token CLI and local development; production tokens come from
// the Supabase auth server.
type Signer struct {
	trust TrustConfig
	now   func() time.Time
}

// NewSigner creates a signer for trust.
func NewSigner(trust TrustConfig) *Signer {
	return &Signer{trust: trust, now: time.Now}
}

// Sign returns a compact serialized token for opts.
func (s *Signer) Sign(opts TokenOptions) (string, error) {
	if s.trust.IsZero() {
		return "", ErrConfigurationMissing
	}
	if opts.Subject == "" {
		return "", errors.New("subject is required")
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	role := opts.Role
	if role == "" {
		role = RoleAuthenticated
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.trust.issuer,
			Subject:   opts.Subject,
			Audience:  jwt.ClaimStrings{s.trust.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Email:     opts.Email,
		Role:      role,
		SessionID: opts.SessionID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.trust.secret)
}
