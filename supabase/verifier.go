package supabase

import (
	"context"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Verify checks rawToken against cfg at instant now and returns the caller's
// identity. Checks run in a fixed order: structure, signature, issuer,
// audience, expiry, not-before, subject. The first failure is returned.
//
// Verify performs no I/O and keeps no state.
func Verify(rawToken string, cfg TrustConfig, now time.Time) (*Identity, error) {
	if cfg.IsZero() {
		return nil, ErrConfigurationMissing
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods(hmacMethods),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(rawToken, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.secret, nil
	}); err != nil {
		return nil, classify(err)
	}

	if claims.Issuer != cfg.issuer {
		return nil, newVerificationError(KindIssuerMismatch, nil)
	}
	if !slices.Contains(claims.Audience, cfg.audience) {
		return nil, newVerificationError(KindAudienceMismatch, nil)
	}

	// exp is inclusive of the skew: a token expired exactly clockSkew ago is
	// still accepted. The library compares strictly, so exp is checked here.
	if claims.ExpiresAt == nil {
		return nil, newVerificationError(KindMalformedToken, jwt.ErrTokenRequiredClaimMissing)
	}
	if now.After(claims.ExpiresAt.Time.Add(cfg.clockSkew)) {
		return nil, newVerificationError(KindExpired, jwt.ErrTokenExpired)
	}

	rest := claims.RegisteredClaims
	rest.ExpiresAt = nil
	validator := jwt.NewValidator(
		jwt.WithLeeway(cfg.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err := validator.Validate(rest); err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" {
		return nil, newVerificationError(KindMissingSubject, nil)
	}

	return claims.identity(), nil
}

// Verifier binds a TrustConfig and a clock.
type Verifier struct {
	trust TrustConfig
	now   func() time.Time
}

// VerifierOption customises a Verifier.
type VerifierOption func(*Verifier)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a verifier for tokens trusted by trust.
func NewVerifier(trust TrustConfig, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		trust: trust,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyToken verifies rawToken against the current time.
func (v *Verifier) VerifyToken(ctx context.Context, rawToken string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Verify(rawToken, v.trust, v.now())
}

// Trust returns the configuration this verifier checks against.
func (v *Verifier) Trust() TrustConfig {
	return v.trust
}
