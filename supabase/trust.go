package supabase

import (
	"fmt"
	"strings"
	"time"
)

// DefaultClockSkew is the tolerance applied to exp and nbf.
const DefaultClockSkew = 5 * time.Minute

// TrustConfig holds the shared secret and expected claims for tokens issued
// by the Supabase auth server. It is immutable after construction and safe to
// share between goroutines.
type TrustConfig struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
}

// NewTrustConfig builds a TrustConfig. All three values are required.
func NewTrustConfig(secret, issuer, audience string) (TrustConfig, error) {
	if trimmed := strings.TrimSpace(secret); trimmed != "" && trimmed != secret {
		return TrustConfig{}, ErrSecretWhitespace
	}
	secret = strings.TrimSpace(secret)
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)

	var missing []string
	if secret == "" {
		missing = append(missing, "secret")
	}
	if issuer == "" {
		missing = append(missing, "issuer")
	}
	if audience == "" {
		missing = append(missing, "audience")
	}
	if len(missing) > 0 {
		return TrustConfig{}, fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}

	return TrustConfig{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		clockSkew: DefaultClockSkew,
	}, nil
}

// Issuer returns the expected iss claim.
func (c TrustConfig) Issuer() string { return c.issuer }

// Audience returns the expected aud claim.
func (c TrustConfig) Audience() string { return c.audience }

// ClockSkew returns the tolerance applied to time-based claims.
func (c TrustConfig) ClockSkew() time.Duration { return c.clockSkew }

// IsZero reports whether c was never initialised through NewTrustConfig.
func (c TrustConfig) IsZero() bool {
	return len(c.secret) == 0
}

// String never includes the secret.
func (c TrustConfig) String() string {
	return fmt.Sprintf("TrustConfig{issuer=%s audience=%s secret=[REDACTED]}", c.issuer, c.audience)
}

// GoString keeps %#v from printing the secret bytes.
func (c TrustConfig) GoString() string {
	return c.String()
}
